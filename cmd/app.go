package cmd

import (
	"github.com/pkg/errors"
	"github.com/supabase/siwx/internal/conf"
	"github.com/supabase/siwx/internal/siwx"
	"github.com/supabase/siwx/internal/siwx/messenger"
	"github.com/supabase/siwx/internal/siwx/storage"
	"github.com/supabase/siwx/internal/siwx/verifier"
	"github.com/supabase/siwx/internal/utilities"
)

// app is the subsystem assembled from the configuration.
type app struct {
	config *conf.GlobalConfiguration
	siwx   *siwx.Config
	chains conf.ChainRegistry

	// remote is set when sessions are kept by the remote service.
	remote *storage.RemoteStorage
}

func newApp(config *conf.GlobalConfiguration) (*app, error) {
	chains, err := conf.LoadChainRegistry(config.Chains.RegistryFile)
	if err != nil {
		return nil, err
	}

	// Every command runs in its own process, so sessions and tokens must
	// live on disk to be seen by the next one.
	kv, err := storage.NewFileStore(config.Storage.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open storage directory")
	}

	a := &app{
		config: config,
		chains: chains,
	}

	var (
		store  siwx.Storage
		nonces messenger.NonceFunc
	)

	switch config.Storage.Backend {
	case conf.StorageRemote:
		sdkVersion := config.Remote.SDKVersion
		if sdkVersion == "" {
			sdkVersion = utilities.Version
		}

		a.remote = storage.NewRemoteStorage(config.Remote.URL, config.Remote.ProjectID, kv,
			storage.WithTimeout(config.Remote.Timeout),
			storage.WithSDK(config.Remote.SDKType, sdkVersion),
			storage.WithClientID(config.Remote.ClientID),
			storage.WithTokenKeys(config.Remote.AuthTokenKey, config.Remote.NonceTokenKey),
		)
		store = a.remote
		nonces = a.remote.GetNonce

	default:
		store = storage.NewLocalStorage(kv, config.Storage.Key)
		nonces = messenger.LocalNonces(config.Message.NonceLength)
	}

	params := messenger.Params{
		Domain:                config.Message.Domain,
		URI:                   config.Message.URI,
		Version:               config.Message.Version,
		Statement:             config.Message.Statement,
		Resources:             config.Message.Resources,
		Expiration:            config.Message.ExpirationDuration,
		ClearChainIDNamespace: config.Message.ClearChainIDNamespace,
		GetNonce:              nonces,
		Networks:              chains,
	}
	if config.Message.RequestID {
		params.GetRequestID = messenger.UUIDRequestIDs()
	}

	m, err := messenger.NewInformalMessenger(params)
	if err != nil {
		return nil, err
	}

	a.siwx = siwx.NewConfig(m, store, verifier.All(),
		siwx.WithExpiredSessionsFiltered(config.Verification.FilterExpired),
	)

	return a, nil
}
