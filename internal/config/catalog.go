package config

type Catalog struct {
	// SeedFile is an optional JSON file replacing the built-in product list.
	SeedFile       string `env:"CATALOG_SEED_FILE"`
	OpeningBalance string `env:"CATALOG_OPENING_BALANCE" envDefault:"0"`
}
