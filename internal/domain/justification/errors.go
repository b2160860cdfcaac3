package justification

import "errors"

var (
	ErrJustificationNotFound         = errors.New("justification not found")
	ErrJustificationAlreadyProcessed = errors.New("justification has already been approved or rejected")
	ErrInvalidAttachmentType         = errors.New("invalid attachment type: only jpg, jpeg, png, pdf allowed")
)
