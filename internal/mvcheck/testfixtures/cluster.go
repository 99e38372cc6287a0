package testfixtures

import (
	"context"
	"fmt"
	"strings"

	"github.com/armadaproject/mvcheck/internal/mvcheck/cql"
	"github.com/armadaproject/mvcheck/internal/mvcheck/model"
)

// FakeCluster is a cluster whose base table and per-node view replicas are RowStores.
type FakeCluster struct {
	*cql.Cluster
	Base  *RowStore
	Views []*RowStore
	// Node indexes whose view reads fail.
	FailingNodes map[int]error
	// Fails base table reads when set.
	BaseErr error
}

// NewFakeCluster returns a cluster of n nodes. Inserts through the coordinator land in Base only;
// tests decide what each view replica holds.
func NewFakeCluster(n int) *FakeCluster {
	fc := &FakeCluster{
		Base:         NewRowStore(),
		FailingNodes: map[int]error{},
	}
	coordinator := &FakeSession{
		OnExec: func(_ context.Context, call ExecCall) error {
			if !strings.HasPrefix(call.Stmt, "INSERT") {
				return nil
			}
			return fc.Base.Insert(call.Values)
		},
		OnScan: func(_ context.Context, _ ScanCall) ([]model.Row, error) {
			if fc.BaseErr != nil {
				return nil, fc.BaseErr
			}
			return fc.Base.Rows(), nil
		},
	}
	cluster := &cql.Cluster{Coordinator: coordinator}
	for i := 0; i < n; i++ {
		i := i
		view := NewRowStore()
		fc.Views = append(fc.Views, view)
		cluster.Nodes = append(cluster.Nodes, cql.NodeSession{
			Endpoint: model.NodeEndpoint{Index: i, Address: fmt.Sprintf("127.0.0.%d:9042", i+1)},
			Session: &FakeSession{
				OnScan: func(_ context.Context, _ ScanCall) ([]model.Row, error) {
					if err := fc.FailingNodes[i]; err != nil {
						return nil, err
					}
					return view.Rows(), nil
				},
			},
		})
	}
	fc.Cluster = cluster
	return fc
}

// Replicate copies the base table into every view replica.
func (fc *FakeCluster) Replicate() {
	for _, view := range fc.Views {
		view.Add(fc.Base.Rows()...)
	}
}

func (fc *FakeCluster) CoordinatorSession() *FakeSession {
	return fc.Cluster.Coordinator.(*FakeSession)
}

func (fc *FakeCluster) NodeFake(i int) *FakeSession {
	return fc.Cluster.Nodes[i].Session.(*FakeSession)
}
