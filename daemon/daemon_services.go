package daemon

import (
	"github.com/horizenofficial/sctemplate/services/blockassembly"
	"github.com/horizenofficial/sctemplate/services/blockchain"
	"github.com/horizenofficial/sctemplate/services/mempool"
	"github.com/horizenofficial/sctemplate/services/rpc"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/stores/sidechain"
	"github.com/horizenofficial/sctemplate/util/servicemanager"
)

const (
	serviceBlockchain    = "Blockchain"
	serviceBlockAssembly = "BlockAssembly"
	serviceRPC           = "RPC"
	loggerMempool        = "Mempool"
	loggerSidechainStore = "SidechainStore"
)

// startServices registers the services in dependency order: the chain first,
// block assembly on top of it, the RPC front end last.
func (d *Daemon) startServices(appSettings *settings.Settings, sm *servicemanager.ServiceManager) error {
	store, err := sidechain.NewStore(d.loggerFactory(loggerSidechainStore), appSettings, appSettings.Sidechain.StoreURL)
	if err != nil {
		return err
	}

	d.sidechains = store

	chain := blockchain.New(d.loggerFactory(serviceBlockchain), appSettings, store)
	if err = sm.AddService(serviceBlockchain, chain); err != nil {
		return err
	}

	pool := mempool.New(d.loggerFactory(loggerMempool), appSettings, store)

	blockAssembly := blockassembly.New(d.loggerFactory(serviceBlockAssembly), appSettings, chain, pool)

	if appSettings.BlockAssembly.Disabled {
		d.loggerFactory(serviceBlockAssembly).Warnf("block assembly is disabled, getblocktemplate will fail")
	} else if err = sm.AddService(serviceBlockAssembly, blockAssembly); err != nil {
		return err
	}

	rpcServer := rpc.NewServer(d.loggerFactory(serviceRPC), appSettings, blockAssembly, chain, pool, store)
	rpcServer.SetHealthFunc(sm.HealthHandler)

	if err = sm.AddService(serviceRPC, rpcServer); err != nil {
		return err
	}

	d.rpcServer = rpcServer

	return nil
}
