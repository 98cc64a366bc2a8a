package cli

import (
	"fmt"

	"github.com/Arideno/quiz-time/internal/domain"
	"github.com/spf13/cobra"
)

// NewHashCmd prints the digest of an answer text, so the owner can author a
// quiz without the raw answer ever reaching the service.
func NewHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <answer>",
		Short: "Print the hex digest of an answer text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), domain.HashAnswer(args[0]))
			return err
		},
	}
}
