package org

import "errors"

var (
	ErrOrganizationNotFound   = errors.New("organization not found")
	ErrMembershipNotFound     = errors.New("membership not found")
	ErrAlreadyMember          = errors.New("user is already a member of this organization")
	ErrInvalidRole            = errors.New("invalid membership role")
	ErrLastAdmin              = errors.New("cannot remove the organization's only owner or admin")
	ErrCannotLeavePersonalOrg = errors.New("cannot leave a personal organization")
)
