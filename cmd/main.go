package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/pifp-labs/funding-node/internal/config"
	"github.com/pifp-labs/funding-node/internal/handlers/httphandlers"
	"github.com/pifp-labs/funding-node/internal/lib"
	"github.com/pifp-labs/funding-node/internal/oracle"
	"github.com/pifp-labs/funding-node/internal/protocol"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	err := config.LoadConfig(&cfg, &os.Args)
	if err != nil {
		panic(err)
	}

	log, err := lib.NewLogger(cfg.Log.LevelApp, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		panic(err)
	}

	chainLog, err := lib.NewLogger(cfg.Log.LevelChain, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		panic(err)
	}

	oracleLog, err := lib.NewLogger(cfg.Log.LevelOracle, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		panic(err)
	}

	defer func() {
		_ = log.Sync()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-shutdownChan
		log.Warnf("received signal: %s", s)
		cancel()

		s = <-shutdownChan
		log.Warnf("received signal: %s. forcing exit...", s)
		os.Exit(1)
	}()

	oracleAddrs, err := parseAddresses(cfg.Chain.OracleAddresses)
	if err != nil {
		panic(err)
	}

	bank := protocol.NewBank()
	chain, err := protocol.NewChain(protocol.Params{
		Admin:        common.HexToAddress(cfg.Chain.AdminAddress),
		Oracles:      oracleAddrs,
		FeeBps:       cfg.Chain.FeeBps,
		FeeRecipient: common.HexToAddress(cfg.Chain.FeeRecipient),
	}, bank, chainLog.Named("CHAIN"))
	if err != nil {
		panic(err)
	}

	var wallet *oracle.Wallet
	if cfg.Oracle.PrivateKey != "" {
		wallet, err = oracle.NewWalletFromPrivateKey(cfg.Oracle.PrivateKey)
	} else {
		wallet, err = oracle.NewWalletFromMnemonic(cfg.Oracle.Mnemonic, cfg.Oracle.AccountIndex)
	}
	if err != nil {
		panic(err)
	}
	if !chain.IsAuthorizedOracle(wallet.Address()) {
		log.Warnf("oracle wallet %s is not in the authorized set, attestations will be rejected", wallet.Address())
	}

	validators := oracle.NewValidatorRegistry(oracle.AcceptingValidator())
	verifier := oracle.NewVerifier(
		chain,
		wallet,
		validators,
		cfg.Oracle.SubmitRetries,
		cfg.Oracle.RetryInterval,
		oracleLog.Named("ORACLE"),
	)

	publicUrl, err := url.Parse(cfg.Web.PublicUrl)
	if err != nil {
		panic(err)
	}

	handl := httphandlers.NewHTTPHandler(chain, verifier, publicUrl, log.Named("HTTP"))

	g, errCtx := errgroup.WithContext(ctx)

	verifierTask := lib.NewTask(verifier)
	verifierTask.Start(errCtx)

	g.Go(func() error {
		select {
		case <-verifierTask.Done():
			return verifierTask.Err()
		case <-errCtx.Done():
			<-verifierTask.Stop()
			return errCtx.Err()
		}
	})

	g.Go(func() error {
		log.Infof("http server is listening: %s", cfg.Web.Address)
		return handl.Run(cfg.Web.Address)
	})

	err = g.Wait()
	log.Infof("app exited due to %s", err)
}

func parseAddresses(s string) ([]common.Address, error) {
	parts := strings.Split(s, ",")
	addrs := make([]common.Address, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !common.IsHexAddress(p) {
			return nil, fmt.Errorf("invalid oracle address %q", p)
		}
		addrs = append(addrs, common.HexToAddress(p))
	}
	return addrs, nil
}
