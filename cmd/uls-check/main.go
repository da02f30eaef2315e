// Command uls-check validates a license key against a ULS server from
// the command line. Configuration comes from ULS_-prefixed environment
// variables or a YAML file named by ULS_CONFIG_FILE; the key is the
// sole positional argument.
//
// Exit codes: 0 the license is valid, 1 the license is invalid, 2 the
// check could not be completed (configuration or network failure).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	ulsdk "github.com/AlvinCoded/universal-license-sdk-go"
	"github.com/AlvinCoded/universal-license-sdk-go/internal/logging"
	"github.com/AlvinCoded/universal-license-sdk-go/pkg/contracts"
)

func main() {
	os.Exit(run())
}

func run() int {
	tier := flag.String("tier", "", "minimum tier the license must satisfy (standard, pro, enterprise)")
	activate := flag.String("activate", "", "activate the key for this device using the given email before checking")
	offline := flag.Bool("offline", false, "verify the response signature against the server's public keys")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline for the check")
	debug := flag.Bool("debug", false, "log every request and response")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] LICENSE-KEY\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}
	key := flag.Arg(0)

	level := "info"
	if *debug {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger setup failed:", err)
		return 2
	}
	slog.SetDefault(logger)

	cfg, err := ulsdk.LoadConfig()
	if err != nil {
		logger.Error("configuration failed", "error", err)
		return 2
	}
	cfg.Logger = logger
	cfg.Debug = cfg.Debug || *debug

	client, err := ulsdk.New(cfg)
	if err != nil {
		logger.Error("client setup failed", "error", err)
		return 2
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *activate != "" {
		resp, err := client.ActivateLicense(ctx, key, *activate)
		if err != nil {
			logger.Error("activation failed", "error", err)
			return 2
		}
		if !resp.Success {
			logger.Error("activation rejected", "message", resp.Message, "code", resp.ErrorCode)
			return 1
		}
		logger.Info("license activated", "device", client.DeviceID())
	}

	opts := []ulsdk.ValidateOption{}
	if *tier != "" {
		opts = append(opts, ulsdk.WithRequiredTier(contracts.Tier(*tier)))
	}

	resp, err := client.ValidateLicense(ctx, key, opts...)
	if err != nil {
		logger.Error("validation failed", "error", err)
		return 2
	}
	if !resp.Valid {
		logger.Error("license invalid", "reason", resp.Reason)
		return 1
	}

	if *offline {
		keys, err := client.GetPublicKeys(ctx)
		if err != nil {
			logger.Error("fetching public keys failed", "error", err)
			return 2
		}
		result, err := client.VerifyOffline(resp, keys)
		if err != nil {
			logger.Error("signature verification errored", "error", err)
			return 2
		}
		if !result.Valid {
			logger.Error("signature verification failed")
			return 1
		}
		logger.Info("signature verified", "kid", result.Kid)
	}

	days, _ := client.DaysUntilExpiry(key)
	attrs := []any{"days_until_expiry", days}
	if resp.License != nil {
		attrs = append(attrs, "tier", resp.License.Tier, "status", resp.License.Status)
	}
	logger.Info("license valid", attrs...)
	return 0
}
