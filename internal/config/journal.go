package config

type Journal struct {
	Path string `env:"JOURNAL_PATH" envDefault:"log.xml"`
	Sync bool   `env:"JOURNAL_SYNC" envDefault:"false"`
}
