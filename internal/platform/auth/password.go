package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when a login names an unknown email, so both
// failure paths pay for one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("clinic-records-dummy-password"), bcrypt.DefaultCost)

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// BurnPasswordCheck performs a comparison that always fails.
func BurnPasswordCheck(pw string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pw))
}
