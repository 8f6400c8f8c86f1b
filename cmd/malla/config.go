package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notegood/malla/internal/config"
	"github.com/notegood/malla/internal/model"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Open the config file in $EDITOR",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// resolveSettings merges the config file under the flags of cmd. A flag set
// on the command line always wins over the file.
func resolveSettings(cmd *cobra.Command) (model.Settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Settings{}, err
	}

	applyStringConfig(cmd, "catalog", &catalogPath, fileCfg.Catalog.Path)
	applyStringConfig(cmd, "policy", &policyName, fileCfg.Gating.Policy)
	applyBoolConfig(cmd, "include-zero-credit", &includeZeroCredit, fileCfg.Stats.IncludeZeroCredit)
	applyBoolConfig(cmd, "include-extra", &includeExtra, fileCfg.Stats.IncludeExtra)
	applyBoolConfig(cmd, "show-locked", &showLocked, fileCfg.View.ShowLocked)
	applyBoolConfig(cmd, "show-taking", &showTaking, fileCfg.View.ShowTaking)

	settings := model.Settings{
		CatalogPath:       expandHome(catalogPath),
		DBPath:            expandHome(dbPath),
		StatePath:         expandHome(statePath),
		Policy:            model.Policy(strings.TrimSpace(policyName)),
		IncludeZeroCredit: includeZeroCredit,
		IncludeExtra:      includeExtra,
		ShowLocked:        showLocked,
		ShowTaking:        showTaking,
	}
	if err := validateSettings(settings); err != nil {
		return model.Settings{}, err
	}
	return settings, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
		return
	}
	*target = *value
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# malla configuration
# Uncomment a value to enable it. CLI flags override config values.

[catalog]
# path = %q

[gating]
# policy = %q         # or "approved-or-taking"

[stats]
# include-zero-credit = false  # Count zero-credit courses toward completion
# include-extra = false        # Count extra courses toward completion

[view]
# show-locked = %t
# show-taking = %t
`,
		config.DefaultCatalogPath(),
		defaultPolicy,
		defaultShowLocked,
		defaultShowTaking,
	)
}

func validateSettings(s model.Settings) error {
	if !s.Policy.Valid() {
		return fmt.Errorf("--policy must be %q or %q", model.PolicyApproved, model.PolicyApprovedOrTaking)
	}
	if strings.TrimSpace(s.CatalogPath) == "" {
		return fmt.Errorf("--catalog must not be empty")
	}
	if s.StatePath == "" && strings.TrimSpace(s.DBPath) == "" {
		return fmt.Errorf("--db must not be empty")
	}
	return nil
}
