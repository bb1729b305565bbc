// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/lightnode/chaincfg"
	"github.com/btcsuite/lightnode/connmgr"
	"github.com/btcsuite/lightnode/internal/log"
	"github.com/btcsuite/lightnode/peer"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename   = "lightnode.conf"
	defaultLogDirname       = "logs"
	defaultLogFilename      = "lightnode.log"
	defaultLogLevel         = "info"
	defaultNegotiateTimeout = peer.DefaultNegotiateTimeout
	defaultDialTimeout      = connmgr.DefaultDialTimeout
)

var (
	defaultHomeDir    = btcutil.AppDataDir("lightnode", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for lightnode.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion       bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile        string        `short:"C" long:"configfile" description:"Path to configuration file"`
	LogDir            string        `long:"logdir" description:"Directory to log output"`
	DebugLevel        string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	ConnectPeer       string        `long:"connect" description:"Handshake with this peer instead of one found through DNS seeding"`
	Listen            string        `long:"listen" description:"Wait for a peer to connect on this interface/port and handshake with it"`
	TestNet3          bool          `long:"testnet" description:"Use the test network"`
	RegressionTest    bool          `long:"regtest" description:"Use the regression test network"`
	SimNet            bool          `long:"simnet" description:"Use the simulation test network"`
	NegotiateTimeout  time.Duration `long:"negotiatetimeout" description:"Time allowed for the handshake to complete.  Valid time units are {s, m, h}"`
	DialTimeout       time.Duration `long:"dialtimeout" description:"Time allowed for connecting to the peer.  Valid time units are {s, m, h}"`
	Proxy             string        `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser         string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass         string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	TorIsolation      bool          `long:"torisolation" description:"Enable Tor stream isolation by randomizing user credentials for each connection"`
	ExternalIP        string        `long:"externalip" description:"Announce this address as ours instead of looking it up"`
	NoLookup          bool          `long:"nolookup" description:"Do not look up our public address, announce the unspecified address instead"`
	LookupURL         string        `long:"lookupurl" description:"Web service which reports our public address"`
	StrictHandshake   bool          `long:"strict" description:"Fail the handshake when the peer sends other messages before it completes"`
	UserAgentComments []string      `long:"uacomment" description:"Comment to add to the user agent -- See BIP 14 for more information"`
}

// activeNetParams is the network selected by the configuration.
var activeNetParams = &chaincfg.MainNetParams

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// normalizeAddress returns addr with the passed default port appended if
// there is not already a port specified.
func normalizeAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// defaultConfig returns the configuration used when no options are given.
func defaultConfig() config {
	return config{
		ConfigFile:       defaultConfigFile,
		LogDir:           defaultLogDir,
		DebugLevel:       defaultLogLevel,
		NegotiateTimeout: defaultNegotiateTimeout,
		DialTimeout:      defaultDialTimeout,
		LookupURL:        connmgr.DefaultLookupURL,
	}
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in lightnode functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
func loadConfig(args []string) (*config, error) {
	cfg := defaultConfig()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag|flags.PassDoubleDash)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		return nil, err
	}
	if preCfg.ShowVersion {
		return &preCfg, nil
	}

	// Load additional config from file.  A missing file at the default
	// location is not an error.
	parser := newConfigParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) ||
			preCfg.ConfigFile != defaultConfigFile {

			return nil, fmt.Errorf("error parsing config file: %w",
				err)
		}
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}

	funcName := "loadConfig"

	// Multiple networks can't be selected simultaneously.  Count number of
	// network flags passed and assign active network params while we're
	// at it.
	numNets := 0
	activeNetParams = &chaincfg.MainNetParams
	if cfg.TestNet3 {
		numNets++
		activeNetParams = &chaincfg.TestNet3Params
	}
	if cfg.RegressionTest {
		numNets++
		activeNetParams = &chaincfg.RegressionNetParams
	}
	if cfg.SimNet {
		numNets++
		activeNetParams = &chaincfg.SimNetParams
	}
	if numNets > 1 {
		str := "%s: the testnet, regtest, and simnet params can't be " +
			"used together -- choose one of the three"
		return nil, fmt.Errorf(str, funcName)
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", log.SupportedSubsystems())
		os.Exit(0)
	}

	// Parse, validate, and set debug log level(s).
	if err := log.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, fmt.Errorf("%s: %w", funcName, err)
	}

	if cfg.NegotiateTimeout <= 0 {
		str := "%s: the negotiatetimeout option must be positive -- " +
			"parsed [%v]"
		return nil, fmt.Errorf(str, funcName, cfg.NegotiateTimeout)
	}
	if cfg.DialTimeout <= 0 {
		str := "%s: the dialtimeout option must be positive -- " +
			"parsed [%v]"
		return nil, fmt.Errorf(str, funcName, cfg.DialTimeout)
	}

	// --connect and --listen do not mix.
	if cfg.ConnectPeer != "" && cfg.Listen != "" {
		str := "%s: the --connect and --listen options can not be mixed"
		return nil, fmt.Errorf(str, funcName)
	}

	// Tor isolation generates its own credentials.
	if cfg.TorIsolation &&
		(cfg.ProxyUser != "" || cfg.ProxyPass != "") {

		str := "%s: the --torisolation option may not be used with " +
			"--proxyuser or --proxypass"
		return nil, fmt.Errorf(str, funcName)
	}
	if cfg.TorIsolation && cfg.Proxy == "" {
		str := "%s: the --torisolation option requires --proxy"
		return nil, fmt.Errorf(str, funcName)
	}

	if cfg.ExternalIP != "" {
		if net.ParseIP(cfg.ExternalIP) == nil {
			str := "%s: the --externalip option [%v] is not an IP " +
				"address"
			return nil, fmt.Errorf(str, funcName, cfg.ExternalIP)
		}
		if cfg.NoLookup {
			str := "%s: the --externalip and --nolookup options " +
				"can not be mixed"
			return nil, fmt.Errorf(str, funcName)
		}
	}

	for _, comment := range cfg.UserAgentComments {
		if strings.ContainsAny(comment, "/:()") {
			str := "%s: the following characters must not appear " +
				"in user agent comments: '/', ':', '(', ')'"
			return nil, fmt.Errorf(str, funcName)
		}
	}

	if cfg.ConnectPeer != "" {
		cfg.ConnectPeer = normalizeAddress(cfg.ConnectPeer,
			activeNetParams.DefaultPort)
	}
	if cfg.Listen != "" {
		cfg.Listen = normalizeAddress(cfg.Listen,
			activeNetParams.DefaultPort)
	}

	// Namespace the log directory per network.
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, activeNetParams.Name)

	return &cfg, nil
}
