package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/vocdoni/eerc-node/config"
	"github.com/vocdoni/eerc-node/converter"
	"github.com/vocdoni/eerc-node/crypto/ecc/curves"
	"github.com/vocdoni/eerc-node/crypto/ethereum"
	"github.com/vocdoni/eerc-node/ledger"
	"github.com/vocdoni/eerc-node/log"
	"github.com/vocdoni/eerc-node/service"
	"github.com/vocdoni/eerc-node/storage"
	"github.com/vocdoni/eerc-node/verifier"
	"github.com/vocdoni/eerc-node/verifier/testverifier"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func main() {
	conf, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Init(conf.LogLevel, conf.LogOutput, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	database, err := metadb.New(db.TypePebble, filepath.Join(conf.DataDir, "db"))
	if err != nil {
		log.Fatal(err)
	}
	stg, err := storage.New(database)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := stg.Close(); err != nil {
			log.Warnw("closing storage", "error", err.Error())
		}
	}()

	minters, err := conf.MinterAddresses()
	if err != nil {
		log.Fatal(err)
	}
	lconf := ledger.Config{
		Name:     conf.Name,
		Symbol:   conf.Symbol,
		Decimals: conf.Decimals,
		ChainID:  conf.ChainID,
	}
	if len(minters) > 0 {
		lconf.MintPolicy = ledger.AllowList(minters...)
	}

	var custody converter.Custody
	if conf.Dev {
		custody, err = devSetup(conf, &lconf)
	} else {
		custody, err = setup(ctx, conf, &lconf)
	}
	if err != nil {
		log.Fatal(err)
	}

	l, err := ledger.New(stg, lconf)
	if err != nil {
		log.Fatal(err)
	}
	info := l.Info()
	log.Infow("ledger ready", "name", info.Name, "symbol", info.Symbol, "chainId", info.ChainID,
		"converter", info.Converter, "dev", conf.Dev)

	apiService := service.NewAPI(l, conf.Host, conf.Port)
	if err := apiService.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer apiService.Stop()

	if custody != nil && conf.ReserveAudit > 0 {
		rm, err := service.NewReserveMonitor(l, custody, conf.ReserveAudit)
		if err != nil {
			log.Fatal(err)
		}
		if err := rm.Start(ctx); err != nil {
			log.Fatal(err)
		}
		defer rm.Stop()
	}

	<-ctx.Done()
	log.Info("shutting down")
}

// setup loads the verifying keys and, in converter mode, connects to the
// token contract.
func setup(ctx context.Context, conf *config.Config, lconf *ledger.Config) (converter.Custody, error) {
	artifacts, err := conf.VerifierArtifacts()
	if err != nil {
		return nil, err
	}
	if err := service.DownloadArtifacts(conf.ArtifactsTimeout, artifacts); err != nil {
		return nil, fmt.Errorf("download verifying keys: %w", err)
	}
	if lconf.Verifiers, err = verifier.LoadSet(ctx, artifacts, conf.VerifierCacheSize); err != nil {
		return nil, err
	}
	if !conf.Converter {
		return nil, nil
	}
	token, err := converter.NewERC20(ctx, conf.Web3RPC, common.HexToAddress(conf.TokenAddress), conf.CustodianKey)
	if err != nil {
		return nil, err
	}
	log.Infow("token connected", "token", token.Address().Hex(), "custodian", token.Custodian().Hex())
	lconf.Token = token
	return token, nil
}

// devSetup configures the test verifier and, in converter mode, an
// in-memory token with the dev funds minted and approved to the custodian.
func devSetup(conf *config.Config, lconf *ledger.Config) (converter.Custody, error) {
	log.Warn("development mode: proofs are checked by the test verifier")
	tv := testverifier.New(curves.New(storage.CurveType), 0)
	keys, err := conf.DevPrivateKeys()
	if err != nil {
		return nil, err
	}
	for _, sk := range keys {
		log.Infow("dev key added", "publicKey", tv.AddKey(sk).String())
	}
	lconf.Verifiers = tv.Set()
	if !conf.Converter {
		return nil, nil
	}
	custodian := ethereum.NewSignKeys()
	if err := custodian.Generate(); err != nil {
		return nil, err
	}
	token := converter.NewMemoryToken(common.HexToAddress("0x70c0"), custodian.Address())
	funds, err := conf.DevFunds()
	if err != nil {
		return nil, err
	}
	for addr, amount := range funds {
		amt := uint256.NewInt(amount)
		if err := token.Mint(addr, amt); err != nil {
			return nil, err
		}
		token.Approve(addr, custodian.Address(), amt)
		log.Infow("dev funds", "address", addr.Hex(), "amount", amount)
	}
	lconf.Token = token
	return token, nil
}
