package configprovider

import (
	"testing"

	"github.com/vitaliisemenov/clustercore/internal/domain"
)

func TestProvider_ProposeBucketConfig_AcceptsValidBody(t *testing.T) {
	p := NewProvider(nil, nil)

	err := p.ProposeBucketConfig("bucket", `{"name":"bucket","nodes":[{"hostname":"localhost:8091","services":{"direct":11210}}],"numberOfReplicas":1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bucketCfg, ok := p.Bucket("bucket")
	if !ok {
		t.Fatal("expected bucket to be present after acceptance")
	}
	if bucketCfg.NumberOfReplicas != 1 {
		t.Errorf("NumberOfReplicas = %d, want 1", bucketCfg.NumberOfReplicas)
	}
	if len(bucketCfg.Nodes) != 1 || bucketCfg.Nodes[0].Hostname != "localhost:8091" {
		t.Errorf("unexpected nodes: %+v", bucketCfg.Nodes)
	}
}

func TestProvider_ProposeBucketConfig_RejectsEmptyNodes(t *testing.T) {
	p := NewProvider(nil, nil)

	err := p.ProposeBucketConfig("bucket", `{"name":"bucket","nodes":[]}`)
	if err == nil {
		t.Fatal("expected an error for an empty node list")
	}
	if _, ok := p.Bucket("bucket"); ok {
		t.Fatal("a rejected proposal must not be stored")
	}
}

func TestProvider_ProposeBucketConfig_RejectsMalformedJSON(t *testing.T) {
	p := NewProvider(nil, nil)

	err := p.ProposeBucketConfig("bucket", `not json`)
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestProvider_SnapshotIsACopy(t *testing.T) {
	p := NewProvider(nil, nil)
	if err := p.ProposeBucketConfig("bucket", `{"nodes":[{"hostname":"h","services":{"direct":1}}]}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := p.Snapshot()
	delete(snap, "bucket")

	if _, ok := p.Bucket("bucket"); !ok {
		t.Fatal("mutating a Snapshot() result must not affect the Provider")
	}
}

func TestProvider_ProposeBucketConfig_RepeatedIdenticalBodyStillAccepts(t *testing.T) {
	p := NewProvider(nil, nil)
	body := `{"nodes":[{"hostname":"h","services":{"direct":1}}],"numberOfReplicas":1}`

	if err := p.ProposeBucketConfig("bucket", body); err != nil {
		t.Fatalf("first proposal: unexpected error: %v", err)
	}
	if err := p.ProposeBucketConfig("bucket", body); err != nil {
		t.Fatalf("repeated proposal: unexpected error: %v", err)
	}

	bucketCfg, ok := p.Bucket("bucket")
	if !ok {
		t.Fatal("expected bucket to remain present")
	}
	if len(bucketCfg.Nodes) != 1 || bucketCfg.Nodes[0].Hostname != "h" {
		t.Errorf("unexpected nodes after repeated identical proposal: %+v", bucketCfg.Nodes)
	}
}

func TestProvider_OnAcceptedHookFires(t *testing.T) {
	p := NewProvider(nil, nil)

	var got domain.BucketConfig
	fired := false
	p.OnAccepted(func(bc domain.BucketConfig) {
		got = bc
		fired = true
	})

	if err := p.ProposeBucketConfig("bucket", `{"nodes":[{"hostname":"h","services":{"direct":1}}],"numberOfReplicas":2}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !fired {
		t.Fatal("expected OnAccepted hook to fire")
	}
	if got.Name != "bucket" || got.NumberOfReplicas != 2 {
		t.Errorf("unexpected bucket passed to hook: %+v", got)
	}
}
