package main

import (
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/VLM-GNESREK/verts-twmailerpro/auth"
	"github.com/VLM-GNESREK/verts-twmailerpro/blacklist"
	"github.com/VLM-GNESREK/verts-twmailerpro/config"
	"github.com/VLM-GNESREK/verts-twmailerpro/maildrop"
	"github.com/VLM-GNESREK/verts-twmailerpro/server"
	"github.com/VLM-GNESREK/verts-twmailerpro/session"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Functions

// initAuthenticator of the correct implementation specified
// in the config to be used by the session service.
func initAuthenticator(conf *config.Config) (session.Authenticator, error) {

	switch conf.Auth.Adapter {

	case "AuthPostgres":

		// A password left empty in the config is looked
		// up in the local .env file instead.
		password := conf.Auth.AuthPostgres.Password
		if password == "" {

			env, err := config.LoadEnv(".env")
			if err != nil {
				return nil, err
			}
			password = env.PostgresPassword
		}

		// Connect to PostgreSQL database.
		return auth.NewPostgresAuthenticator(
			conf.Auth.AuthPostgres.IP,
			conf.Auth.AuthPostgres.Port,
			conf.Auth.AuthPostgres.Database,
			conf.Auth.AuthPostgres.User,
			password,
			conf.Auth.AuthPostgres.UseTLS,
		)

	case "AuthLDAP":
		// Bind against the external LDAP directory per login.
		return auth.NewLDAPAuthenticator(
			conf.Auth.AuthLDAP.URI,
			conf.Auth.AuthLDAP.UserDN,
			conf.Auth.AuthLDAP.UseStartTLS,
			conf.Auth.AuthLDAP.SkipTLSVerify,
		)

	default: // AuthFile
		// Open authentication file and read user information.
		return auth.NewFileAuthenticator(
			conf.Auth.AuthFile.File,
			conf.Auth.AuthFile.Separator,
		)
	}
}

// initLogger initializes a JSON gokit-logger set
// to the according log level supplied via cli flag.
func initLogger(loglevel string) log.Logger {

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger,
		"ts", log.DefaultTimestampUTC,
		"caller", log.DefaultCaller,
	)

	switch strings.ToLower(loglevel) {
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowDebug())
	}

	return logger
}

func main() {

	// Set CPUs usable to all available.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Parse command-line flag that defines a config path.
	configFlag := flag.String("config", "config.toml", "Provide path to configuration file in TOML syntax.")
	loglevelFlag := flag.String("loglevel", "debug", "This flag sets the default logging level.")
	flag.Parse()

	logger := initLogger(*loglevelFlag)

	// Read configuration from file.
	conf, err := config.LoadConfig(*configFlag)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to load the config",
			"err", err,
		)
		os.Exit(1)
	}

	authenticator, err := initAuthenticator(conf)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to initialize an authenticator",
			"err", err,
		)
		os.Exit(2)
	}

	// Make sure the spool root exists before the first delivery.
	if err := os.MkdirAll(conf.Spool.RootDir, 0700); err != nil {
		level.Error(logger).Log(
			"msg", "failed to create the mail spool root",
			"err", err,
		)
		os.Exit(3)
	}

	store := maildrop.NewStore(conf.Spool.RootDir)
	guard := blacklist.NewFileGuard(conf.Blacklist.File, (time.Duration(conf.Blacklist.DurationSeconds) * time.Second))

	metrics := NewMailerMetrics(conf.Server.PrometheusAddr)
	go runPromHTTP(logger, conf.Server.PrometheusAddr)

	// Assemble the session service with its middlewares.
	service := session.NewService(logger, authenticator, guard, store)
	service = session.NewLoggingService(service, logger)
	service = session.NewMetricsService(service, metrics.Session.Commands, metrics.Session.Logins)

	handler := session.NewHandler(logger, guard, service)

	listener, err := server.InitListener(conf.Server)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to open the mail listener",
			"err", err,
		)
		os.Exit(4)
	}
	defer listener.Close()

	level.Info(logger).Log(
		"msg", "listening for incoming mail sessions",
		"addr", listener.Addr().String(),
	)

	// Loop on incoming requests.
	if err := handler.Run(listener); err != nil {
		level.Error(logger).Log(
			"msg", "failed to run the session handler",
			"err", err,
		)
		os.Exit(5)
	}
}
