package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/oneconcern/scope/pkg/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var catObjectCmd = &cobra.Command{
	Use:   "cat-object <hash>",
	Short: "Print an object of the scope",
	Long:  `Print an object of the scope as JSON, preceded by its type.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("cat-object")
		defer cancel()

		if !model.IsHash(args[0]) {
			wrapFatalln(fmt.Sprintf("%q is not an object hash", args[0]), nil)
			return
		}
		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		obj, err := s.Objects().Load(ctx, model.Ref(args[0]), true)
		if err != nil {
			wrapFatalln("load object", err)
			return
		}
		raw, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			wrapFatalln("encode object", err)
			return
		}
		fmt.Fprintf(out, "%s %s\n%s\n", obj.Type(), obj.Hash(), raw)
	},
}

func init() {
	rootCmd.AddCommand(catObjectCmd)
}
