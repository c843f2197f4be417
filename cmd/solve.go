package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/bbdc-bot/internal/captcha"
)

func newSolveCmd() *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run the captcha decoder on an image file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(imagePath)
			if err != nil {
				return err
			}
			res, err := captcha.NewDecoder().Decode(raw)
			if err != nil {
				return err
			}
			fmt.Printf("Text: %s | Confidence: %d%% | Accepted: %v\n",
				res.Text, res.Confidence, captcha.Validate(res.Text, res.Confidence))
			return nil
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "path to the captcha image")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}
