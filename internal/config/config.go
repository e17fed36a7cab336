package config

import "time"

var (
	BuildVersion = "0.1.0"
)

// Validation tags described here: https://pkg.go.dev/github.com/go-playground/validator/v10
type Config struct {
	Chain struct {
		AdminAddress    string `env:"CHAIN_ADMIN_ADDRESS"    flag:"chain-admin-address"    validate:"required,eth_addr"     desc:"address allowed to update the oracle allowlist"`
		OracleAddresses string `env:"CHAIN_ORACLE_ADDRESSES" flag:"chain-oracle-addresses" validate:"required"              desc:"comma-separated addresses of oracles trusted to attest proofs"`
		FeeBps          int    `env:"CHAIN_FEE_BPS"          flag:"chain-fee-bps"          validate:"omitempty,gte=0,lte=10000" desc:"protocol fee in basis points deducted from released funds"`
		FeeRecipient    string `env:"CHAIN_FEE_RECIPIENT"    flag:"chain-fee-recipient"    validate:"omitempty,eth_addr"    desc:"address receiving the protocol fee, required if fee is set"`
	}
	Environment string `env:"ENVIRONMENT" flag:"environment"`
	Log         struct {
		Color       bool   `env:"LOG_COLOR"        flag:"log-color"`
		FilePath    string `env:"LOG_FILE_PATH"    flag:"log-file-path"    validate:"omitempty,filepath" desc:"enables file logging and sets the file path"`
		IsProd      bool   `env:"LOG_IS_PROD"      flag:"log-is-prod"      desc:"affects the format of the log output"`
		JSON        bool   `env:"LOG_JSON"         flag:"log-json"`
		LevelApp    string `env:"LOG_LEVEL_APP"    flag:"log-level-app"    validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelChain  string `env:"LOG_LEVEL_CHAIN"  flag:"log-level-chain"  validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelOracle string `env:"LOG_LEVEL_ORACLE" flag:"log-level-oracle" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	}
	Oracle struct {
		Mnemonic      string        `env:"ORACLE_MNEMONIC"        flag:"oracle-mnemonic"        validate:"required_without=PrivateKey" desc:"mnemonic the oracle signing key is derived from"`
		AccountIndex  int           `env:"ORACLE_ACCOUNT_INDEX"   flag:"oracle-account-index"   validate:"omitempty,gte=0"`
		PrivateKey    string        `env:"ORACLE_PRIVATE_KEY"     flag:"oracle-private-key"     validate:"required_without=Mnemonic"   desc:"hex private key, overrides mnemonic derivation"`
		SubmitRetries int           `env:"ORACLE_SUBMIT_RETRIES"  flag:"oracle-submit-retries"  validate:"omitempty,gte=1"             desc:"attestation submission attempts before leaving the proof pending"`
		RetryInterval time.Duration `env:"ORACLE_RETRY_INTERVAL"  flag:"oracle-retry-interval"  validate:"omitempty,duration"`
	}
	Web struct {
		Address   string `env:"WEB_ADDRESS"    flag:"web-address"    validate:"required,hostname_port" desc:"http server address host:port"`
		PublicUrl string `env:"WEB_PUBLIC_URL" flag:"web-public-url" validate:"omitempty,url"          desc:"public url of the node, falls back to web-address if empty"`
	}
}

func (cfg *Config) SetDefaults() {
	if cfg.Log.LevelApp == "" {
		cfg.Log.LevelApp = "info"
	}
	if cfg.Log.LevelChain == "" {
		cfg.Log.LevelChain = "info"
	}
	if cfg.Log.LevelOracle == "" {
		cfg.Log.LevelOracle = "info"
	}
	if cfg.Oracle.SubmitRetries == 0 {
		cfg.Oracle.SubmitRetries = 5
	}
	if cfg.Oracle.RetryInterval == 0 {
		cfg.Oracle.RetryInterval = 2 * time.Second
	}
	if cfg.Web.Address == "" {
		cfg.Web.Address = "0.0.0.0:8080"
	}
}
