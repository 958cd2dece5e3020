package settings

import (
	"net/url"
	"time"

	"github.com/bsv-blockchain/go-chaincfg"
)

type BlockAssemblySettings struct {
	Disabled              bool
	MinRefreshInterval    time.Duration
	RootsCacheTTL         time.Duration
	CoinbaseArbitraryText string
	MinerPubKeyHash       string
	BlockVersion          int32
	Bits                  uint32
	TemplateNotifyURL     *url.URL
}

type RPCSettings struct {
	ListenAddress  string
	MaxBodySize    string
	Timeout        time.Duration
	ClientURL      *url.URL
	AllowedOrigins []string
}

type MempoolSettings struct {
	MaxTransactions int
	MaxCertificates int
}

type SidechainSettings struct {
	StoreURL *url.URL
}

type TracingSettings struct {
	Enabled      bool
	CollectorURL *url.URL
	SampleRate   float64
}

type Settings struct {
	ClientName         string
	Version            string
	DataFolder         string
	LogLevel           string
	LoggerType         string
	Network            string
	ChainCfgParams     *chaincfg.Params
	PrometheusEndpoint string
	Tracing            TracingSettings
	BlockAssembly      BlockAssemblySettings
	RPC                RPCSettings
	Mempool            MempoolSettings
	Sidechain          SidechainSettings
}
