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
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// StaticProviderOptions configures a StaticProvider.
type StaticProviderOptions struct {
	// Path to a YAML file describing the cluster's nodes and log groups.
	Path string
}

// StaticProvider reads a cluster snapshot from a YAML file on disk and
// pushes a fresh Snapshot to every watcher on each write, via fsnotify.
// It is the simplest clustering.Provider, suitable for single-node
// deployments and tests that would rather not stand up an etcd cluster.
type StaticProvider struct {
	path string

	lock     sync.Mutex
	revision uint64
	watchers map[chan *Snapshot]struct{}
	fsWatch  *fsnotify.Watcher
}

var _ Provider = (*StaticProvider)(nil)

// NewStaticProvider starts watching opts.Path for changes. The file must
// exist at call time; callers that want to manage absence themselves
// should stat the path before constructing the provider.
func NewStaticProvider(opts StaticProviderOptions) (*StaticProvider, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("clustering: failed to start file watcher: %w", err)
	}

	if err := fsWatch.Add(opts.Path); err != nil {
		fsWatch.Close()
		return nil, fmt.Errorf("clustering: failed to watch %q: %w", opts.Path, err)
	}

	p := &StaticProvider{
		path:     opts.Path,
		revision: 1,
		watchers: make(map[chan *Snapshot]struct{}),
		fsWatch:  fsWatch,
	}

	go p.run()

	return p, nil
}

func (p *StaticProvider) run() {
	for {
		select {
		case event, ok := <-p.fsWatch.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				p.reloadAndBroadcast()
			}
		case _, ok := <-p.fsWatch.Errors:
			if !ok {
				return
			}
			// the caller learns about read failures through Get/Watch calls
			// made after this point; there is no error channel to surface
			// asynchronous watcher failures on.
		}
	}
}

func (p *StaticProvider) reloadAndBroadcast() {
	snap, err := p.load()
	if err != nil {
		return
	}

	p.lock.Lock()
	for ch := range p.watchers {
		ch <- snap
	}
	p.lock.Unlock()
}

func (p *StaticProvider) load() (*Snapshot, error) {
	bytes, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("clustering: failed to read %q: %w", p.path, err)
	}

	var cfg yamlConfig
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return nil, fmt.Errorf("clustering: failed to parse %q: %w", p.path, err)
	}

	p.lock.Lock()
	revision := p.revision
	p.revision++
	p.lock.Unlock()

	return cfg.toSnapshot([]uint64{revision})
}

// Get loads and parses the current contents of the backing file.
func (p *StaticProvider) Get(ctx context.Context) (*Snapshot, error) {
	return p.load()
}

// Watch returns a channel that is sent a new Snapshot on every write to
// the backing file, starting with a snapshot of its current contents. The
// channel is closed when ctx is cancelled.
func (p *StaticProvider) Watch(ctx context.Context) (chan *Snapshot, error) {
	initial, err := p.load()
	if err != nil {
		return nil, err
	}

	ch := make(chan *Snapshot, 1)

	p.lock.Lock()
	p.watchers[ch] = struct{}{}
	p.lock.Unlock()

	outputCh := make(chan *Snapshot)
	go func() {
		outputCh <- initial
		for snap := range ch {
			outputCh <- snap
		}
		close(outputCh)
	}()

	go func() {
		<-ctx.Done()

		p.lock.Lock()
		delete(p.watchers, ch)
		p.lock.Unlock()

		close(ch)
	}()

	return outputCh, nil
}

// Close stops the underlying file watcher.
func (p *StaticProvider) Close() error {
	return p.fsWatch.Close()
}
