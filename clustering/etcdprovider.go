/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package clustering

import (
	"context"
	"encoding/json"
	"fmt"

	etcd "go.etcd.io/etcd/client/v3"
)

// EtcdProviderOptions configures an EtcdProvider.
type EtcdProviderOptions struct {
	EtcdClient *etcd.Client
	// Key is the single etcd key holding the JSON-encoded cluster
	// snapshot (the same shape StaticProvider parses from YAML).
	Key string
}

// EtcdProvider reads the cluster snapshot from a single etcd key and
// streams updates via etcd's watch API, so that every placementd replica
// observing the same key converges on the same view without needing its
// own copy of the config file.
type EtcdProvider struct {
	client *etcd.Client
	key    string
}

var _ Provider = (*EtcdProvider)(nil)

func NewEtcdProvider(opts EtcdProviderOptions) (*EtcdProvider, error) {
	if opts.EtcdClient == nil {
		return nil, fmt.Errorf("clustering: etcd client is required")
	}
	if opts.Key == "" {
		return nil, fmt.Errorf("clustering: etcd key is required")
	}

	return &EtcdProvider{
		client: opts.EtcdClient,
		key:    opts.Key,
	}, nil
}

func (p *EtcdProvider) decode(revision int64, value []byte) (*Snapshot, error) {
	var cfg yamlConfig
	if err := json.Unmarshal(value, &cfg); err != nil {
		return nil, fmt.Errorf("clustering: failed to parse cluster config at %q: %w", p.key, err)
	}

	return cfg.toSnapshot([]uint64{uint64(revision)})
}

// Get fetches and parses the current value of the configured key.
func (p *EtcdProvider) Get(ctx context.Context) (*Snapshot, error) {
	resp, err := p.client.KV.Get(ctx, p.key)
	if err != nil {
		return nil, fmt.Errorf("clustering: failed to fetch %q: %w", p.key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("clustering: %q does not exist", p.key)
	}

	return p.decode(resp.Header.Revision, resp.Kvs[0].Value)
}

// Watch returns a channel fed a fresh Snapshot every time the configured
// key changes, starting with the key's current value. The channel is
// closed if the underlying etcd watch channel closes.
func (p *EtcdProvider) Watch(ctx context.Context) (chan *Snapshot, error) {
	resp, err := p.client.KV.Get(ctx, p.key)
	if err != nil {
		return nil, fmt.Errorf("clustering: failed to fetch %q: %w", p.key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("clustering: %q does not exist", p.key)
	}

	initial, err := p.decode(resp.Header.Revision, resp.Kvs[0].Value)
	if err != nil {
		return nil, err
	}

	outputCh := make(chan *Snapshot, 1)
	outputCh <- initial

	watchCh := p.client.Watcher.Watch(ctx, p.key, etcd.WithRev(resp.Header.Revision+1))
	go func() {
		defer close(outputCh)

		for {
			watchResp, ok := <-watchCh
			if !ok {
				return
			}
			if len(watchResp.Events) == 0 {
				continue
			}

			lastEvt := watchResp.Events[len(watchResp.Events)-1]
			snap, err := p.decode(watchResp.Header.Revision, lastEvt.Kv.Value)
			if err != nil {
				// the caller learns about this on the next Get call; there
				// is no error channel to surface an async decode failure on.
				continue
			}

			outputCh <- snap
		}
	}()

	return outputCh, nil
}
