package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lensapp/lens/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "settings",
		GroupID: "inspect",
		Short:   "Show or change camera settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show every camera setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			writeSettings(cmd, settings.Load(cfg.Settings.Path))
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <kind> <percent>",
		Short: "Set a camera setting from a slider position (0-100)",
		Long: `Set a camera setting from a slider position between 0 and 100.

Kinds: brightness, contrast, saturation, gamma, exposure, temperature,
white_balance_r, white_balance_g, white_balance_b.

Example usage:
  lens settings set brightness 75
  lens settings set white-balance-r 50`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := settings.ParseKind(args[0])
			if err != nil {
				return err
			}
			percent, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid percent %q: %w", args[1], err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s := settings.Load(cfg.Settings.Path)
			if err := s.Apply(kind, percent); err != nil {
				return err
			}
			if err := settings.Save(cfg.Settings.Path, s); err != nil {
				return err
			}

			value, _ := s.Value(kind)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", renderPass("✓"), kind, formatValue(kind, value))
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

func writeSettings(cmd *cobra.Command, s settings.Settings) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, renderAccent("Camera settings"))
	for _, kind := range settings.Kinds() {
		value, _ := s.Value(kind)
		percent, _ := s.Percent(kind)
		fmt.Fprintf(w, "%s %s\n", renderField(kind.String(), formatValue(kind, value)),
			renderMuted(fmt.Sprintf("(%.0f%%)", percent)))
	}
}

func formatValue(kind settings.Kind, v float64) string {
	switch kind {
	case settings.Brightness, settings.Temperature:
		return strconv.FormatFloat(v, 'f', 0, 64)
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}
