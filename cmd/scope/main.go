// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/scope/cmd/scope/cmd"
)

func main() {
	cmd.Execute()
}
