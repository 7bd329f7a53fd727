package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velabs/studioforge-backend/internal/apperr"
	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/repos"
	"github.com/velabs/studioforge-backend/internal/types"
)

// DefaultMaxTraversalDepth bounds both graph walks. Past the bound the walk
// fails closed: a link attempt is treated as a cycle, an impact query errors.
const DefaultMaxTraversalDepth = 10000

type LinkAssetsInput struct {
	ParentAssetID uuid.UUID
	ParentVersion int
	ChildAssetID  uuid.UUID
	ChildVersion  int
	Type          string
}

type DependencyService interface {
	LinkAssets(ctx context.Context, input LinkAssetsInput) (*types.AssetDependency, error)
	FindImpactedAssets(ctx context.Context, assetID uuid.UUID, version int) ([]string, error)
	FindChildren(ctx context.Context, assetID uuid.UUID, version int) ([]*types.AssetDependency, error)
	FindParents(ctx context.Context, assetID uuid.UUID, version int) ([]*types.AssetDependency, error)
}

type dependencyService struct {
	db       *gorm.DB
	log      *logger.Logger
	deps     repos.AssetDependencyRepo
	maxDepth int
}

func NewDependencyService(db *gorm.DB, baseLog *logger.Logger, deps repos.AssetDependencyRepo, maxDepth int) DependencyService {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxTraversalDepth
	}
	return &dependencyService{
		db:       db,
		log:      baseLog.With("service", "DependencyService"),
		deps:     deps,
		maxDepth: maxDepth,
	}
}

// LinkAssets persists a directed edge unless doing so would close a cycle.
// The cycle check walks backward through existing parent-links; if the
// proposed child turns out to already be an ancestor of the proposed parent,
// the edge is rejected and nothing is written.
func (s *dependencyService) LinkAssets(ctx context.Context, input LinkAssetsInput) (*types.AssetDependency, error) {
	if input.ParentAssetID == uuid.Nil || input.ChildAssetID == uuid.Nil {
		return nil, apperr.Validation("parent and child asset ids are required")
	}
	if input.ParentVersion < 1 || input.ChildVersion < 1 {
		return nil, apperr.Validation("versions must be positive integers")
	}
	depType := input.Type
	if depType == "" {
		depType = types.DependencyDependsOn
	}
	if !types.ValidDependencyType(depType) {
		return nil, apperr.Validation("invalid dependency type %q", depType)
	}

	cycle, err := s.createsCycle(ctx, input)
	if err != nil {
		return nil, err
	}
	if cycle {
		return nil, apperr.Validation("circular dependency detected")
	}

	dep := &types.AssetDependency{
		ParentAssetID: input.ParentAssetID,
		ParentVersion: input.ParentVersion,
		ChildAssetID:  input.ChildAssetID,
		ChildVersion:  input.ChildVersion,
		Type:          depType,
	}
	created, err := s.deps.Create(ctx, nil, dep)
	if err != nil {
		if repos.IsDuplicateKey(err) {
			return nil, apperr.Validation("dependency link already exists")
		}
		return nil, apperr.Internal(err)
	}
	return created, nil
}

type depNode struct {
	assetID uuid.UUID
	version int
}

// createsCycle reports whether edge parent->child would close a loop. The
// edge does iff the proposed child is already an ancestor of the proposed
// parent, so the walk climbs parent-links from the proposed parent with an
// explicit work stack, looking for the child. The visited set is keyed on
// asset id alone, which bounds the walk to O(edges) even when many versions
// of the same asset appear.
func (s *dependencyService) createsCycle(ctx context.Context, input LinkAssetsInput) (bool, error) {
	if input.ParentAssetID == input.ChildAssetID {
		// Trivial self-loop.
		return true, nil
	}
	visited := map[uuid.UUID]bool{}
	stack := []depNode{{assetID: input.ParentAssetID, version: input.ParentVersion}}
	steps := 0
	for len(stack) > 0 {
		steps++
		if steps > s.maxDepth {
			s.log.Warn("Cycle check exceeded traversal bound, failing closed", "parent", input.ParentAssetID, "child", input.ChildAssetID, "bound", s.maxDepth)
			return true, nil
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.assetID == input.ChildAssetID {
			return true, nil
		}
		if visited[node.assetID] {
			continue
		}
		visited[node.assetID] = true
		parents, err := s.deps.FindParents(ctx, nil, node.assetID, node.version)
		if err != nil {
			return false, apperr.Internal(err)
		}
		for _, dep := range parents {
			stack = append(stack, depNode{assetID: dep.ParentAssetID, version: dep.ParentVersion})
		}
	}
	return false, nil
}

// FindImpactedAssets computes the forward transitive closure of dependents of
// (assetID, version): every asset-version that would be affected if this one
// changed. Keys are "assetId:version". Diamond re-convergence is handled by
// adding a node to the result before expanding it.
func (s *dependencyService) FindImpactedAssets(ctx context.Context, assetID uuid.UUID, version int) ([]string, error) {
	impacted := map[string]bool{}
	stack := []depNode{{assetID: assetID, version: version}}
	steps := 0
	for len(stack) > 0 {
		steps++
		if steps > s.maxDepth {
			return nil, apperr.Validation("dependency graph exceeds traversal bound (%d nodes)", s.maxDepth)
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		children, err := s.deps.FindChildren(ctx, nil, node.assetID, node.version)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for _, dep := range children {
			key := fmt.Sprintf("%s:%d", dep.ChildAssetID, dep.ChildVersion)
			if !impacted[key] {
				impacted[key] = true
				stack = append(stack, depNode{assetID: dep.ChildAssetID, version: dep.ChildVersion})
			}
		}
	}
	out := make([]string, 0, len(impacted))
	for key := range impacted {
		out = append(out, key)
	}
	return out, nil
}

func (s *dependencyService) FindChildren(ctx context.Context, assetID uuid.UUID, version int) ([]*types.AssetDependency, error) {
	children, err := s.deps.FindChildren(ctx, nil, assetID, version)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return children, nil
}

func (s *dependencyService) FindParents(ctx context.Context, assetID uuid.UUID, version int) ([]*types.AssetDependency, error) {
	parents, err := s.deps.FindParents(ctx, nil, assetID, version)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return parents, nil
}
