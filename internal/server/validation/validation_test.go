package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Name                 string `form:"name" validate:"required,max=50"`
	Email                string `form:"email" validate:"required,email_format"`
	Password             string `form:"password" validate:"required,min=6,max=40"`
	PasswordConfirmation string `form:"password_confirmation" validate:"eqfield=Password"`
}

func validForm() signupForm {
	return signupForm{
		Name:                 "Example User",
		Email:                "user@example.com",
		Password:             "foobar",
		PasswordConfirmation: "foobar",
	}
}

func TestStruct_Valid(t *testing.T) {
	fe := Struct(validForm())
	assert.False(t, fe.Any())
}

func TestStruct_RequiredFields(t *testing.T) {
	f := validForm()
	f.Name = ""
	f.Email = ""

	fe := Struct(f)
	require.True(t, fe.Any())
	assert.Contains(t, fe["name"], "can't be blank")
	assert.Contains(t, fe["email"], "can't be blank")
}

func TestStruct_NameTooLong(t *testing.T) {
	f := validForm()
	f.Name = strings.Repeat("a", 51)

	fe := Struct(f)
	assert.Contains(t, fe["name"], "is too long (maximum is 50 characters)")
}

func TestStruct_EmailFormats(t *testing.T) {
	good := []string{"user@foo.com", "THE_USER@foo.bar.org", "first.last@foo.jp"}
	for _, addr := range good {
		f := validForm()
		f.Email = addr
		assert.False(t, Struct(f).Any(), "expected %q to be accepted", addr)
	}

	bad := []string{"user@foo,com", "user_at_foo.org", "example.user@foo.", "user@foo"}
	for _, addr := range bad {
		f := validForm()
		f.Email = addr
		fe := Struct(f)
		assert.Contains(t, fe["email"], "is invalid", "expected %q to be rejected", addr)
	}
}

func TestStruct_PasswordBounds(t *testing.T) {
	f := validForm()
	f.Password = strings.Repeat("a", 5)
	f.PasswordConfirmation = f.Password
	fe := Struct(f)
	assert.Contains(t, fe["password"], "is too short (minimum is 6 characters)")

	f = validForm()
	f.Password = strings.Repeat("a", 41)
	f.PasswordConfirmation = f.Password
	fe = Struct(f)
	assert.Contains(t, fe["password"], "is too long (maximum is 40 characters)")
}

func TestStruct_PasswordConfirmationMismatch(t *testing.T) {
	f := validForm()
	f.PasswordConfirmation = "invalid"

	fe := Struct(f)
	assert.Contains(t, fe["password_confirmation"], "doesn't match confirmation")
}

func TestFieldErrors_ErrorString(t *testing.T) {
	fe := FieldErrors{}
	fe.Add("email", "has already been taken")
	fe.Add("name", "can't be blank")

	msg := fe.Error()
	assert.Contains(t, msg, "email has already been taken")
	assert.Contains(t, msg, "name can't be blank")
}
