package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/notegood/malla/internal/catalog"
)

// Run starts the grid on the alternate screen and blocks until the user
// quits. A local catalog file is watched and reloaded on change.
func Run(m *Model, catalogPath string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if catalogPath != "" && !catalog.IsRemote(catalogPath) && m.reload != nil {
		stop, err := StartWatcher(catalogPath, program.Send, logger)
		if err != nil {
			logger.Warn("catalog watcher disabled", zap.String("path", catalogPath), zap.Error(err))
		} else {
			defer stop()
		}
	}
	_, err := program.Run()
	return err
}
