package clustering

import (
	"fmt"

	"github.com/couchbase/stellar-placement/topology"
)

// yamlConfig is the on-disk shape of a static cluster snapshot, as loaded
// by StaticProvider. It exists only as a decode target; callers interact
// with the resulting Snapshot and its Node/LogGroup types.
type yamlConfig struct {
	Nodes     []yamlNode     `yaml:"nodes" json:"nodes"`
	LogGroups []yamlLogGroup `yaml:"logGroups" json:"logGroups"`
}

type yamlLocation struct {
	Region     string `yaml:"region,omitempty" json:"region,omitempty"`
	DataCenter string `yaml:"dataCenter,omitempty" json:"dataCenter,omitempty"`
	Cluster    string `yaml:"cluster,omitempty" json:"cluster,omitempty"`
	Row        string `yaml:"row,omitempty" json:"row,omitempty"`
	Rack       string `yaml:"rack,omitempty" json:"rack,omitempty"`
}

func (l yamlLocation) toLocation() *topology.Location {
	labels := map[topology.Scope]string{}
	if l.Region != "" {
		labels[topology.Region] = l.Region
	}
	if l.DataCenter != "" {
		labels[topology.DataCenter] = l.DataCenter
	}
	if l.Cluster != "" {
		labels[topology.Cluster] = l.Cluster
	}
	if l.Row != "" {
		labels[topology.Row] = l.Row
	}
	if l.Rack != "" {
		labels[topology.Rack] = l.Rack
	}
	if len(labels) == 0 {
		return nil
	}
	loc := topology.NewLocation(labels)
	return &loc
}

type yamlNode struct {
	Index             int           `yaml:"index" json:"index"`
	Address           string        `yaml:"address" json:"address"`
	Location          *yamlLocation `yaml:"location,omitempty" json:"location,omitempty"`
	IncludeInNodesets bool          `yaml:"includeInNodesets" json:"includeInNodesets"`
	Weight            float64       `yaml:"weight" json:"weight"`
}

func (n yamlNode) toNode() Node {
	var loc *topology.Location
	if n.Location != nil {
		loc = n.Location.toLocation()
	}

	return Node{
		NodeIndex:         n.Index,
		Address:           n.Address,
		Location:          loc,
		IncludeInNodesets: n.IncludeInNodesets,
		Weight:            n.Weight,
	}
}

type yamlReplicationFactor struct {
	Scope  string `yaml:"scope" json:"scope"`
	Factor int    `yaml:"factor" json:"factor"`
}

type yamlLogGroup struct {
	ID                string                  `yaml:"id" json:"id"`
	Replication       []yamlReplicationFactor `yaml:"replication" json:"replication"`
	NodesetSizeTarget *int                    `yaml:"nodesetSizeTarget,omitempty" json:"nodesetSizeTarget,omitempty"`
}

func (g yamlLogGroup) toLogGroup() (*LogGroup, error) {
	factors := make([]ReplicationFactor, 0, len(g.Replication))
	for _, rf := range g.Replication {
		scope, ok := topology.ParseScope(rf.Scope)
		if !ok {
			return nil, fmt.Errorf("clustering: log group %q: unknown replication scope %q", g.ID, rf.Scope)
		}
		factors = append(factors, ReplicationFactor{Scope: scope, Factor: rf.Factor})
	}

	return &LogGroup{
		ID:                g.ID,
		Replication:       NewReplicationProperty(factors...),
		NodesetSizeTarget: g.NodesetSizeTarget,
	}, nil
}

func (c yamlConfig) toSnapshot(revision []uint64) (*Snapshot, error) {
	nodes := make([]Node, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		nodes = append(nodes, n.toNode())
	}

	logGroups := make([]*LogGroup, 0, len(c.LogGroups))
	for _, g := range c.LogGroups {
		lg, err := g.toLogGroup()
		if err != nil {
			return nil, err
		}
		logGroups = append(logGroups, lg)
	}

	return NewSnapshot(revision, nodes, logGroups), nil
}
