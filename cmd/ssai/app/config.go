package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/spf13/pflag"

	"github.com/liveadstitch/ssai-core/pkg/logging"
)

const (
	defaultPort                 = 8090
	defaultTimeoutS             = 10
	defaultDecisionBudgetMS     = 150
	defaultPDTSearchWindowLines = 30
	defaultBreakGraceMs         = 2000
	defaultChannelConfigTTLMs   = 5000
	defaultVASTCacheTTLS        = 300
	defaultMaxRequests          = 0
	defaultReqLimitIntervalS    = 24 * 3600
)

// ServerConfig is process-wide configuration, loaded through koanf the same
// way the teacher loads ServerConfig: defaults, then an optional JSON file,
// then command-line flags, then SSAI_-prefixed environment variables.
// Per-channel configuration is never loaded here — it comes from the
// collab.ChannelConfigSource collaborator at request time.
type ServerConfig struct {
	LogFormat   string `json:"logformat"`
	LogLevel    string `json:"loglevel"`
	Port        int    `json:"port"`
	TimeoutS    int    `json:"timeoutS"`
	MaxRequests int    `json:"maxrequests"`
	ReqLimitInt int    `json:"reqlimitint"`
	ReqLimitLog string `json:"reqlimitlog"`
	// WhiteListBlocks is a comma-separated list of CIDR blocks exempt from rate limiting.
	WhiteListBlocks string `json:"whitelistblocks"`

	DecisionBudgetMS     int `json:"decisionbudgetms"`
	PDTSearchWindowLines int `json:"pdtsearchwindowlines"`
	BreakGraceMs         int `json:"breakgracems"`
	ChannelConfigTTLMs   int `json:"channelconfigttlms"`
	VASTCacheTTLS        int `json:"vastcachettls"`

	// Domains is a comma-separated list of domains for Let's Encrypt via certmagic.
	Domains  string `json:"domains"`
	CertPath string `json:"-"`
	KeyPath  string `json:"-"`

	// JWTPublicKeyPath/JWTHMACSecret configure bearer auth; empty JWTPublicKeyPath
	// and empty JWTHMACSecret together disable auth (useful for local testing).
	JWTPublicKeyPath string `json:"jwtpublickeypath"`
	JWTHMACSecret    string `json:"-"`
}

var DefaultConfig = ServerConfig{
	LogFormat:            "text",
	LogLevel:             "INFO",
	Port:                 defaultPort,
	TimeoutS:             defaultTimeoutS,
	MaxRequests:          defaultMaxRequests,
	ReqLimitInt:          defaultReqLimitIntervalS,
	DecisionBudgetMS:     defaultDecisionBudgetMS,
	PDTSearchWindowLines: defaultPDTSearchWindowLines,
	BreakGraceMs:         defaultBreakGraceMs,
	ChannelConfigTTLMs:   defaultChannelConfigTTLMs,
	VASTCacheTTLS:        defaultVASTCacheTTLS,
}

// LoadConfig loads defaults, an optional config file, command-line flags,
// and finally SSAI_-prefixed environment variables, exactly in the
// teacher's precedence order.
func LoadConfig(args []string) (*ServerConfig, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig, "json"), nil); err != nil {
		return nil, err
	}

	f := pflag.NewFlagSet("ssai", pflag.ContinueOnError)
	f.Usage = func() {
		parts := strings.Split(args[0], "/")
		name := parts[len(parts)-1]
		fmt.Fprintf(os.Stderr, "Run as %s [options]:\n", name)
		f.PrintDefaults()
	}
	cfgFile := f.String("cfg", "", "path to a JSON config file")
	f.Int("port", k.Int("port"), "HTTP port")
	lf := strings.Join(logging.LogFormats, ", ")
	f.String("logformat", k.String("logformat"), fmt.Sprintf("log format [%s]", lf))
	ll := strings.Join(logging.LogLevels, ", ")
	f.String("loglevel", k.String("loglevel"), fmt.Sprintf("log level [%s]", ll))
	f.Int("timeout", k.Int("timeoutS"), "timeout for all requests (seconds)")
	f.Int("maxrequests", k.Int("maxrequests"), "max nr of requests per IP per interval")
	f.String("reqlimitlog", k.String("reqlimitlog"), "path to request limit log file")
	f.Int("reqlimitint", k.Int("reqlimitint"), "interval for request limit in seconds")
	f.String("whitelistblocks", k.String("whitelistblocks"), "comma-separated CIDR blocks exempt from rate limiting")
	f.Int("decisionbudgetms", k.Int("decisionbudgetms"), "ad decision waterfall budget in milliseconds")
	f.Int("pdtsearchwindowlines", k.Int("pdtsearchwindowlines"), "max lines scanned for the next PDT anchor")
	f.Int("breakgracems", k.Int("breakgracems"), "grace period appended to an ad break's computed end time")
	f.Int("channelconfigttlms", k.Int("channelconfigttlms"), "channel config cache TTL in milliseconds")
	f.Int("vastcachettls", k.Int("vastcachettls"), "VAST response cache TTL in seconds")
	f.String("domains", k.String("domains"), "comma-separated DNS domains for automatic HTTPS via Let's Encrypt")
	f.String("certpath", k.String("certpath"), "path to TLS certificate file")
	f.String("keypath", k.String("keypath"), "path to TLS private key file")
	f.String("jwtpublickeypath", k.String("jwtpublickeypath"), "path to an RS256 public key for bearer JWT validation")
	if err := f.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("command line parse: %w", err)
	}

	if *cfgFile != "" {
		if err := k.Load(file.Provider(*cfgFile), json.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("parsing cli: %w", err)
	}

	if err := k.Load(env.Provider("SSAI_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "SSAI_")), "_", ".")
	}), nil); err != nil {
		return nil, err
	}

	if err := checkTLSParams(k); err != nil {
		return nil, err
	}

	var cfg ServerConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	cfg.JWTHMACSecret = os.Getenv("SSAI_JWT_HMAC_SECRET")
	return &cfg, nil
}

func checkTLSParams(k *koanf.Koanf) error {
	domains := k.String("domains")
	certPath := k.String("certpath")
	keyPath := k.String("keypath")
	switch {
	case domains != "":
		if certPath != "" || keyPath != "" {
			return fmt.Errorf("cannot use certpath and keypath together with Let's Encrypt domains")
		}
		return nil
	case certPath == "" && keyPath == "":
		return nil
	case certPath != "" && keyPath != "":
		return nil
	default:
		return fmt.Errorf("certpath and keypath must both be empty or set")
	}
}
