package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
)

// addStaff updates or creates a platform staff.Staff
func (cli *commandLine) addStaff(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	isActive := true
	now := time.Now().UTC()

	stf, err := cli.staffRepo.GetStaffByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != staff.ErrNotFound {
			return err
		}

		stf = staff.Staff{
			Name:      name,
			Email:     email,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if isAdmin {
			stf.Roles = staff.AllRoles
		}
		if err := stf.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.staffRepo.CreateStaff(ctx, stf)
		return err
	}

	stf.Name = name
	stf.UpdatedAt = now
	if isAdmin {
		stf.Roles = staff.AllRoles
	}
	if err := stf.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.staffRepo.UpdateStaff(ctx, stf, &isActive)
	return err
}
