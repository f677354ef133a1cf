package session

import (
	"context"
	"errors"
)

// Identity keys written by the signup flow.
const (
	KeyUsername     = "username"
	KeyCompanyName  = "companyName"
	KeyGSTNumber    = "gstNumber"
	KeyEmployeeName = "employeeName"
	KeyJobTitle     = "jobTitle"
	KeyEmail        = "email"
	KeyLoginTime    = "loginTime"
)

const defaultDisplayName = "Valued Customer"

type Profile struct {
	Username     string `json:"username"`
	CompanyName  string `json:"company_name"`
	GSTNumber    string `json:"gst_number"`
	EmployeeName string `json:"employee_name"`
	JobTitle     string `json:"job_title"`
	Email        string `json:"email"`
	LoginTime    string `json:"login_time"`
}

// DisplayName is the name printed on certificates as issuer.
func (p Profile) DisplayName() string {
	switch {
	case p.CompanyName != "":
		return p.CompanyName
	case p.EmployeeName != "":
		return p.EmployeeName
	case p.Username != "":
		return p.Username
	default:
		return defaultDisplayName
	}
}

func (p *Profile) fields() map[string]*string {
	return map[string]*string{
		KeyUsername:     &p.Username,
		KeyCompanyName:  &p.CompanyName,
		KeyGSTNumber:    &p.GSTNumber,
		KeyEmployeeName: &p.EmployeeName,
		KeyJobTitle:     &p.JobTitle,
		KeyEmail:        &p.Email,
		KeyLoginTime:    &p.LoginTime,
	}
}

func LoadProfile(ctx context.Context, s Store) (Profile, error) {
	var p Profile
	for key, dst := range p.fields() {
		v, err := s.Get(ctx, key)
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return Profile{}, err
		}
		*dst = v
	}
	return p, nil
}

// SaveProfile writes every identity key; empty fields are removed from the store.
func SaveProfile(ctx context.Context, s Store, p Profile) error {
	for key, src := range p.fields() {
		var err error
		if *src == "" {
			err = s.Delete(ctx, key)
		} else {
			err = s.Set(ctx, key, *src)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
