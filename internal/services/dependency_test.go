package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/velabs/studioforge-backend/internal/apperr"
	"github.com/velabs/studioforge-backend/internal/types"
)

func newDependencyFixture(t *testing.T) (DependencyService, *fakeDepRepo) {
	t.Helper()
	repo := &fakeDepRepo{}
	svc := NewDependencyService(nil, testLogger(t), repo, 0)
	return svc, repo
}

func mustLink(t *testing.T, svc DependencyService, parent uuid.UUID, parentVersion int, child uuid.UUID, childVersion int) {
	t.Helper()
	_, err := svc.LinkAssets(context.Background(), LinkAssetsInput{
		ParentAssetID: parent,
		ParentVersion: parentVersion,
		ChildAssetID:  child,
		ChildVersion:  childVersion,
		Type:          types.DependencyDependsOn,
	})
	if err != nil {
		t.Fatalf("LinkAssets(%s v%d -> %s v%d) failed: %v", parent, parentVersion, child, childVersion, err)
	}
}

func TestLinkAssets_SelfLoopRejected(t *testing.T) {
	svc, repo := newDependencyFixture(t)
	id := uuid.New()
	_, err := svc.LinkAssets(context.Background(), LinkAssetsInput{
		ParentAssetID: id,
		ParentVersion: 1,
		ChildAssetID:  id,
		ChildVersion:  1,
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for self-loop, got %v", err)
	}
	if len(repo.edges) != 0 {
		t.Fatalf("self-loop must not be persisted, found %d edges", len(repo.edges))
	}
}

func TestLinkAssets_DirectCycleRejected(t *testing.T) {
	svc, repo := newDependencyFixture(t)
	rig := uuid.New()
	character := uuid.New()

	mustLink(t, svc, rig, 1, character, 2)

	_, err := svc.LinkAssets(context.Background(), LinkAssetsInput{
		ParentAssetID: character,
		ParentVersion: 2,
		ChildAssetID:  rig,
		ChildVersion:  1,
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected cycle validation error, got %v", err)
	}
	if len(repo.edges) != 1 {
		t.Fatalf("cycle edge must not be persisted, found %d edges", len(repo.edges))
	}
}

func TestLinkAssets_TransitiveCycleRejected(t *testing.T) {
	svc, _ := newDependencyFixture(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	mustLink(t, svc, a, 1, b, 1)
	mustLink(t, svc, b, 1, c, 1)

	_, err := svc.LinkAssets(context.Background(), LinkAssetsInput{
		ParentAssetID: c,
		ParentVersion: 1,
		ChildAssetID:  a,
		ChildVersion:  1,
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected transitive cycle to be rejected, got %v", err)
	}
}

func TestLinkAssets_AcceptsDiamond(t *testing.T) {
	svc, repo := newDependencyFixture(t)
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	mustLink(t, svc, a, 1, b, 1)
	mustLink(t, svc, a, 1, c, 1)
	mustLink(t, svc, b, 1, d, 1)
	mustLink(t, svc, c, 1, d, 1)

	if len(repo.edges) != 4 {
		t.Fatalf("expected 4 edges, got %d", len(repo.edges))
	}
}

func TestLinkAssets_DuplicateEdgeRejected(t *testing.T) {
	svc, _ := newDependencyFixture(t)
	a, b := uuid.New(), uuid.New()

	mustLink(t, svc, a, 1, b, 1)
	_, err := svc.LinkAssets(context.Background(), LinkAssetsInput{
		ParentAssetID: a,
		ParentVersion: 1,
		ChildAssetID:  b,
		ChildVersion:  1,
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for duplicate edge, got %v", err)
	}
}

func TestLinkAssets_InvalidTypeRejected(t *testing.T) {
	svc, _ := newDependencyFixture(t)
	_, err := svc.LinkAssets(context.Background(), LinkAssetsInput{
		ParentAssetID: uuid.New(),
		ParentVersion: 1,
		ChildAssetID:  uuid.New(),
		ChildVersion:  1,
		Type:          "SIBLING_OF",
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestFindImpactedAssets_Diamond(t *testing.T) {
	svc, _ := newDependencyFixture(t)
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	mustLink(t, svc, a, 1, b, 1)
	mustLink(t, svc, a, 1, c, 1)
	mustLink(t, svc, b, 1, d, 1)
	mustLink(t, svc, c, 1, d, 1)

	impacted, err := svc.FindImpactedAssets(context.Background(), a, 1)
	if err != nil {
		t.Fatalf("FindImpactedAssets failed: %v", err)
	}
	want := map[string]bool{
		fmt.Sprintf("%s:1", b): true,
		fmt.Sprintf("%s:1", c): true,
		fmt.Sprintf("%s:1", d): true,
	}
	if len(impacted) != len(want) {
		t.Fatalf("expected %d impacted keys, got %d: %v", len(want), len(impacted), impacted)
	}
	seen := map[string]bool{}
	for _, key := range impacted {
		if !want[key] {
			t.Fatalf("unexpected impacted key %q", key)
		}
		if seen[key] {
			t.Fatalf("impacted key %q appears more than once", key)
		}
		seen[key] = true
	}
}

func TestFindImpactedAssets_EmptyGraph(t *testing.T) {
	svc, _ := newDependencyFixture(t)
	impacted, err := svc.FindImpactedAssets(context.Background(), uuid.New(), 1)
	if err != nil {
		t.Fatalf("FindImpactedAssets on empty graph failed: %v", err)
	}
	if len(impacted) != 0 {
		t.Fatalf("expected empty impact set, got %v", impacted)
	}
}

func TestLinkAssets_TraversalBoundFailsClosed(t *testing.T) {
	repo := &fakeDepRepo{}
	svc := NewDependencyService(nil, testLogger(t), repo, 3)

	// Chain a<-b<-c<-d deeper than the bound, then try d's descendant.
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	for i := 0; i < len(ids)-1; i++ {
		repo.edges = append(repo.edges, &types.AssetDependency{
			ParentAssetID: ids[i],
			ParentVersion: 1,
			ChildAssetID:  ids[i+1],
			ChildVersion:  1,
		})
	}

	_, err := svc.LinkAssets(context.Background(), LinkAssetsInput{
		ParentAssetID: ids[len(ids)-1],
		ParentVersion: 1,
		ChildAssetID:  uuid.New(),
		ChildVersion:  1,
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected traversal bound to fail closed as a cycle, got %v", err)
	}
}
