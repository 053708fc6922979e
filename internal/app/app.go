package app

import (
	"os"
	"os/signal"
	"syscall"

	runtime "github.com/banzaicloud/logrus-runtime-formatter"
	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// App holds attributes for the dpuctl application
type App struct {
	// Config is the dpuctl configuration.
	Config *Configuration
	// TermCh is the channel to terminate the app based on a signal
	TermCh chan os.Signal
	// Logger is the app logger
	Logger *logrus.Logger

	v *viper.Viper
}

// New returns a new instance of the dpuctl app
func New(cfgFile string, loglevel int) (*App, error) {
	app := &App{
		Config: &Configuration{},
		TermCh: make(chan os.Signal, 1),
		Logger: logrus.New(),
		v:      viper.New(),
	}

	if err := app.LoadConfiguration(cfgFile); err != nil {
		return nil, err
	}

	switch loglevel {
	case model.LogLevelDebug:
		app.Logger.Level = logrus.DebugLevel
	case model.LogLevelTrace:
		app.Logger.Level = logrus.TraceLevel
	default:
		app.Logger.Level = logrus.InfoLevel
	}

	app.Logger.SetFormatter(
		&runtime.Formatter{ChildFormatter: &logrus.JSONFormatter{}},
	)

	// register for SIGINT, SIGTERM
	signal.Notify(app.TermCh, syscall.SIGINT, syscall.SIGTERM)

	return app, nil
}
