package ledger

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HorizonURL        string        `envconfig:"HORIZON_URL" default:"https://horizon-testnet.stellar.org"`
	NetworkPassphrase string        `envconfig:"NETWORK_PASSPHRASE" default:"Test SDF Network ; September 2015"`
	Timeout           time.Duration `envconfig:"LEDGER_TIMEOUT" default:"15s"`
	USDCIssuer        string        `envconfig:"USDC_ISSUER" default:"GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5"`
	EURCIssuer        string        `envconfig:"EURC_ISSUER" default:"GDHU6WRG4IEQXM5NZ4BMPKOXHW76MZM4Y2IEMFDVXBSDP6SJY4ITNPP2"`
}

func LoadConfig() (c *Config, err error) {
	c = &Config{}
	err = envconfig.Process("", c)
	if err != nil {
		return nil, err
	}
	return c, nil
}
