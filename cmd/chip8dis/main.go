package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kapitanov/chip8/internal/disasm"
	"github.com/spf13/cobra"
	"golang.design/x/clipboard"
)

func newCommand(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Print a CHIP-8 ROM as an instruction listing",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
	}

	copyToClipboard := cmd.Flags().Bool("clipboard", false, "also copy the listing to the clipboard")

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		path := args[0]
		rom, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to load file %q: %w", path, err)
		}

		var listing bytes.Buffer
		if err := disasm.Write(&listing, filepath.Base(path), disasm.Disassemble(rom)); err != nil {
			return err
		}

		if _, err := stdout.Write(listing.Bytes()); err != nil {
			return fmt.Errorf("writing listing: %w", err)
		}

		if *copyToClipboard {
			if err := clipboard.Init(); err != nil {
				return fmt.Errorf("clipboard unavailable: %w", err)
			}
			<-clipboard.Write(clipboard.FmtText, listing.Bytes())
			slog.Info("listing copied to clipboard", "bytes", listing.Len())
		}

		return nil
	}

	return cmd
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cmd := newCommand(os.Stdout)
	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}
