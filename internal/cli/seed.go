package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"skillcore/internal/core"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the store with a small demo data set",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		if err := seedDemo(cmd.Context(), svc); err != nil {
			return err
		}
		fmt.Println("Seeded demo data.")
		return nil
	},
}

func seedDemo(ctx context.Context, svc *core.Service) error {
	languages, err := svc.AddCategory(ctx, core.Category{Name: "Programming Languages"})
	if err != nil {
		return err
	}
	backend, err := svc.AddSubCategory(ctx, core.SubCategory{Name: "Backend", CategoryID: languages.ID})
	if err != nil {
		return err
	}
	golang, err := svc.AddSkill(ctx, core.Skill{Name: "Go", SubCategoryID: backend.ID})
	if err != nil {
		return err
	}
	sql, err := svc.AddSkill(ctx, core.Skill{Name: "SQL", SubCategoryID: backend.ID})
	if err != nil {
		return err
	}

	engineer, err := svc.AddRole(ctx, core.Role{
		Name: "Backend Engineer",
		RequiredSkills: []core.RoleRequirement{
			{SkillID: golang.ID, Level: core.LevelAdvanced},
			{SkillID: sql.ID, Level: core.LevelIntermediate},
		},
	})
	if err != nil {
		return err
	}
	senior, err := svc.AddRole(ctx, core.Role{
		Name:           "Senior Backend Engineer",
		InheritsFromID: &engineer.ID,
		RequiredSkills: []core.RoleRequirement{
			{SkillID: golang.ID, Level: core.LevelExpert},
		},
	})
	if err != nil {
		return err
	}

	anna, err := svc.AddEmployee(ctx, core.Employee{Name: "Anna Becker", RoleIDs: []string{senior.ID}})
	if err != nil {
		return err
	}
	jonas, err := svc.AddEmployee(ctx, core.Employee{Name: "Jonas Weber", RoleIDs: []string{engineer.ID}})
	if err != nil {
		return err
	}

	if _, err := svc.SetAssessmentLevel(ctx, anna.ID, golang.ID, core.LevelExpert); err != nil {
		return err
	}
	if _, err := svc.SetAssessmentLevel(ctx, anna.ID, sql.ID, core.LevelIntermediate); err != nil {
		return err
	}
	if _, err := svc.SetAssessmentLevel(ctx, jonas.ID, golang.ID, core.LevelBasic); err != nil {
		return err
	}
	return nil
}
