package config

import (
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// Deployment-specific values get swapped in by the deploy scripts; these
// defaults are good for local development against the docker-compose
// Postgres and a MailHog SMTP server.
var Config = MatShareConfig{
	Env:      Dev,
	BaseUrl:  "http://localhost:9001",
	LogLevel: zerolog.DebugLevel,

	Postgres: PostgresConfig{
		User:     "matshare",
		Password: "password",
		Hostname: "localhost",
		Port:     5432,
		DbName:   "matshare",
		LogLevel: tracelog.LogLevelWarn,
		MinConn:  2,
		MaxConn:  10,
	},

	Email: EmailConfig{
		ServerAddress:       "localhost",
		ServerPort:          1025,
		FromAddress:         "noreply@matshare.example.com",
		FromAddressPassword: "",
		FromName:            "MatShare",
		ForceToAddress:      "",
		GitAdminEmail:       "matshare@matshare.example.com",
	},

	Git: GitConfig{
		Root:       "./tmp/repos",
		MainRef:    "refs/heads/master",
		EditSubdir: "edit",
		SrcSubdir:  "src",
	},

	Matuc: MatucConfig{
		Path:             "matuc",
		ConfigFile:       ".lecture_meta_data.dcxml",
		Contributor:      "MatShare",
		DefaultPublisher: "TU Dresden",
	},

	Media: MediaConfig{
		Root: "./tmp/media",
	},

	Spaces: SpacesConfig{
		AssetsSpacesKey:      "",
		AssetsSpacesSecret:   "",
		AssetsSpacesRegion:   "fra1",
		AssetsSpacesEndpoint: "http://localhost:9003",
		AssetsSpacesBucket:   "matshare-dev",
		AssetsPublicUrlRoot:  "http://localhost:9003/matshare-dev/",
	},

	Queue: QueueConfig{
		Workers:      2,
		PollInterval: 2 * time.Second,
	},
}
