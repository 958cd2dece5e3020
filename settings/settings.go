package settings

import (
	"time"

	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/horizenofficial/sctemplate/errors"
)

func NewSettings() *Settings {
	network := getString("network", "mainnet")

	params, err := GetChainParams(network)
	if err != nil {
		panic(err)
	}

	return &Settings{
		ClientName:         getString("clientName", "sctemplate"),
		Version:            getString("version", "dev"),
		DataFolder:         getString("dataFolder", "data"),
		LogLevel:           getString("logLevel", "INFO"),
		LoggerType:         getString("logger_type", "zerolog"),
		Network:            network,
		ChainCfgParams:     params,
		PrometheusEndpoint: getString("prometheusEndpoint", "/metrics"),
		Tracing: TracingSettings{
			Enabled:      getBool("tracing_enabled", false),
			CollectorURL: getURL("tracing_collector_url", "http://localhost:4318"),
			SampleRate:   getFloat64("tracing_SampleRate", 0.01),
		},
		BlockAssembly: BlockAssemblySettings{
			Disabled:              getBool("blockassembly_disabled", false),
			MinRefreshInterval:    getDuration("blockassembly_minRefreshInterval", 5*time.Second),
			RootsCacheTTL:         getDuration("blockassembly_rootsCacheTTL", time.Minute),
			CoinbaseArbitraryText: getString("coinbase_arbitrary_text", "/sctemplate/"),
			MinerPubKeyHash:       getString("miner_pubkeyhash", "0000000000000000000000000000000000000000"),
			BlockVersion:          int32(getInt("blockassembly_blockVersion", 3)), //nolint:gosec
			Bits:                  uint32(getInt("blockassembly_bits", 0x207fffff)), //nolint:gosec
			TemplateNotifyURL:     getURL("blockassembly_templateNotifyURL", ""),
		},
		RPC: RPCSettings{
			ListenAddress:  getString("rpc_listenAddress", ":18232"),
			MaxBodySize:    getString("rpc_maxBodySize", "4M"),
			Timeout:        getDuration("rpc_timeout", 30*time.Second),
			ClientURL:      getURL("rpc_url", "http://localhost:18232"),
			AllowedOrigins: getMultiString("rpc_allowedOrigins", "|", []string{"*"}),
		},
		Mempool: MempoolSettings{
			MaxTransactions: getInt("mempool_maxTransactions", 100_000),
			MaxCertificates: getInt("mempool_maxCertificates", 1_000),
		},
		Sidechain: SidechainSettings{
			StoreURL: getURL("sidechain_store", "memory://"),
		},
	}
}

// GetChainParams maps a network name onto its chain parameters.
func GetChainParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNetParams, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, errors.NewConfigurationError("unknown network %s", network)
	}
}
