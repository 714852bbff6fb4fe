package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "List every word in the default dictionary",
	RunE: func(cmd *cobra.Command, args []string) error {
		machine, err := newVM()
		if err != nil {
			return err
		}
		names := machine.Dict().Names()
		sort.Strings(names)
		for _, name := range names {
			w, _ := machine.Dict().Lookup(name)
			effect := w.StackEffect()
			if effect != "" {
				fmt.Printf("%-16s %s\n", name, effect)
			} else {
				fmt.Println(name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(wordsCmd)
}
