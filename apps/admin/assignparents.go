package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

// assignParents links every eleve without a parent to a parent account,
// round-robin, so the visibility filters have a complete relationship index.
func (cli *commandLine) assignParents() error {
	ctx := context.Background()

	orphans, err := cli.usrRepo.QueryUsers(ctx, &user.QueryFilter{Role: policy.RoleStudent, NoParent: true}, nil)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		fmt.Println("no eleves without a parent")
		return nil
	}

	parents, err := cli.usrRepo.QueryUsers(ctx, &user.QueryFilter{Role: policy.RoleParent}, nil)
	if err != nil {
		return err
	}
	if len(parents) == 0 {
		return fmt.Errorf("no parent accounts to assign")
	}

	for i, child := range orphans {
		child.ParentID = parents[i%len(parents)].ID
		child.UpdatedAt = time.Now().UTC()
		if _, err = cli.usrRepo.UpdateUser(ctx, child); err != nil {
			return err
		}
	}
	fmt.Printf("linked %d eleves to %d parents\n", len(orphans), len(parents))
	return nil
}
