package project

import "errors"

var (
	ErrNotFound     = errors.New("project not found")
	ErrForbidden    = errors.New("not authorized to manage projects")
	ErrNameRequired = errors.New("project name is required")
	ErrNameTaken    = errors.New("a project with this name already exists")
	ErrInvalidBlock = errors.New("block name is required")
)
