package services

import "github.com/velabs/studioforge-backend/internal/types"

// PermissionService is the synchronous capability check consulted before any
// mutating operation. Denials are never retried.
type PermissionService struct{}

func NewPermissionService() *PermissionService { return &PermissionService{} }

// CanUpload: every role may upload new versions.
func (p *PermissionService) CanUpload(role string) bool {
	return role == types.RoleArtist || role == types.RoleDirector || role == types.RoleProducer
}

func (p *PermissionService) CanDelete(role string) bool {
	return role == types.RoleProducer
}

func (p *PermissionService) CanApprove(role string) bool {
	return role == types.RoleDirector || role == types.RoleProducer
}
