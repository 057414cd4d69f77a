package main

import (
	"fmt"
	"io"
	"os"
	"os/user"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/halvard/timeclock/internal/history"
	"github.com/halvard/timeclock/internal/offline"
	"github.com/halvard/timeclock/internal/store"
	"github.com/halvard/timeclock/internal/timer"
	"github.com/halvard/timeclock/internal/tui"
)

// osIdentity resolves the user id from TIMECLOCK_USER, falling back to the
// OS username.
type osIdentity struct{}

func (osIdentity) CurrentUserID() (string, error) {
	if id := os.Getenv("TIMECLOCK_USER"); id != "" {
		return id, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("resolve user: %w", err)
	}
	return u.Username, nil
}

// newLogger writes to the log file; the terminal belongs to the TUI.
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(io.Discard)

	path, err := store.DefaultLogPath()
	if err != nil {
		return log
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return log
	}
	log.SetOutput(f)
	return log
}

func main() {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	s, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	kvPath, err := offline.DefaultKVPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	local := offline.NewStore(offline.NewFileKV(kvPath))

	log := newLogger()

	identity := osIdentity{}
	userID, err := identity.CurrentUserID()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	lc := timer.NewLifecycle(s, local, identity, timer.NewRateProvider(s), log)
	defer lc.Close()

	if resumed, err := lc.Resume(); err != nil {
		log.WithError(err).Warn("resume running session")
	} else if resumed {
		log.Info("resumed running session")
	}

	hist := history.NewService(s, local, log)

	app := tui.NewApp(s, lc, hist, userID)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
