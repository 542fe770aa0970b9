package main

import (
	"context"
	"time"

	"github.com/trezcool/shule/core"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	stf, err := cli.staffRepo.GetStaffByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err := stf.SetPassword(pwd); err != nil {
		return err
	}
	stf.UpdatedAt = time.Now().UTC()
	_, err = cli.staffRepo.UpdateStaff(ctx, stf, nil)
	return err
}
