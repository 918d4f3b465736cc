package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Username string   `json:"minecraft_username" validate:"notblank,max=32"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Items    []string `json:"items" validate:"min=1"`
	Status   string   `json:"status" validate:"omitempty,oneof=pending processing completed cancelled"`
}

func TestValidateStruct_Valid(t *testing.T) {
	req := sampleRequest{Username: "Steve", Items: []string{"rank"}, Status: "pending"}
	assert.NoError(t, ValidateStruct(&req))
}

func TestValidateStruct_FieldErrors(t *testing.T) {
	req := sampleRequest{Username: "   ", Email: "not-an-email", Status: "shipped"}

	err := ValidateStruct(&req)
	require.Error(t, err)

	valErr, ok := err.(*ValidationError)
	require.True(t, ok)

	msg, found := valErr.GetFieldError("minecraft_username")
	assert.True(t, found)
	assert.Equal(t, "minecraft_username must not be blank", msg)

	msg, _ = valErr.GetFieldError("items")
	assert.Equal(t, "items must contain at least 1 item(s)", msg)

	_, found = valErr.GetFieldError("email")
	assert.True(t, found)
	_, found = valErr.GetFieldError("status")
	assert.True(t, found)
}

