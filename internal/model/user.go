package model

import (
	"encoding/json"
	"time"
)

// User is a registered account. Profile holds everything the client sent
// besides the email.
type User struct {
	Email     string
	CreatedAt time.Time
	Profile   map[string]any
}

func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Profile)+2)
	for k, v := range u.Profile {
		out[k] = v
	}
	out[FieldEmail] = u.Email
	out[FieldCreatedAt] = u.CreatedAt
	return json.Marshal(out)
}

func (u *User) UnmarshalJSON(data []byte) error {
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var user User
	if v, ok := f[FieldEmail]; ok {
		s, err := stringField(FieldEmail, v)
		if err != nil {
			return err
		}
		user.Email = s
	}
	for k, v := range f.Without(FieldEmail, FieldCreatedAt, FieldID) {
		if user.Profile == nil {
			user.Profile = make(map[string]any)
		}
		user.Profile[k] = v
	}
	*u = user
	return nil
}
