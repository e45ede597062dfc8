package config

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Beta Environment = "beta"
	Dev  Environment = "dev"
)

type MatShareConfig struct {
	Env      Environment
	BaseUrl  string
	LogLevel zerolog.Level

	Postgres PostgresConfig
	Email    EmailConfig
	Git      GitConfig
	Matuc    MatucConfig
	Media    MediaConfig
	Spaces   SpacesConfig
	Queue    QueueConfig
}

type PostgresConfig struct {
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type EmailConfig struct {
	ServerAddress       string
	ServerPort          int
	FromAddress         string
	FromAddressPassword string
	FromName            string

	// When set, all mail goes to this address instead of the real
	// recipients. For dev and beta.
	ForceToAddress string

	// The address administrative git commits are attributed to.
	GitAdminEmail string
}

type GitConfig struct {
	// Directory all course repositories live under, mirroring the course
	// slug path.
	Root string

	// The single reference MatShare tracks per repository.
	MainRef string

	// The two top-level subdirectories of every course repository.
	EditSubdir string
	SrcSubdir  string
}

type MatucConfig struct {
	// Path to the matuc binary used for EPUB conversion.
	Path string

	// Name of the generated matuc configuration file inside the edit
	// directory.
	ConfigFile string

	// dc:contributor value written to every generated config.
	Contributor string

	// Default dc:publisher for new courses.
	DefaultPublisher string
}

type MediaConfig struct {
	// Directory material build results are written to.
	Root string
}

type SpacesConfig struct {
	AssetsSpacesKey      string
	AssetsSpacesSecret   string
	AssetsSpacesRegion   string
	AssetsSpacesEndpoint string
	AssetsSpacesBucket   string
	AssetsPublicUrlRoot  string
}

type QueueConfig struct {
	// Number of concurrent queue workers.
	Workers int

	// How often an idle worker polls for new jobs.
	PollInterval time.Duration
}
