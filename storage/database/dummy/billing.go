package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/billing"
)

type billingRepository struct {
	db *DB
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *DB) billing.Repository {
	return &billingRepository{db: db}
}

func sortFeeItems(fis []billing.FeeItem) {
	sort.Slice(fis, func(i, j int) bool {
		if !fis[i].DueDate.Equal(fis[j].DueDate) {
			return fis[i].DueDate.Before(fis[j].DueDate)
		}
		return fis[i].ID < fis[j].ID
	})
}

func (repo *billingRepository) CreateFeeItem(ctx context.Context, fi billing.FeeItem) (billing.FeeItem, error) {
	repo.db.billing.Lock()
	defer repo.db.billing.Unlock()

	repo.db.billing.seq++
	fi.ID = repo.db.billing.seq
	repo.db.billing.table[fi.ID] = &fi
	return fi, nil
}

func (repo *billingRepository) QueryFeeItemsByStudent(ctx context.Context, studentID int) ([]billing.FeeItem, error) {
	repo.db.billing.RLock()
	defer repo.db.billing.RUnlock()

	var fis []billing.FeeItem
	for _, fi := range repo.db.billing.table {
		if fi.StudentID == studentID {
			fis = append(fis, *fi)
		}
	}
	sortFeeItems(fis)
	return fis, nil
}

func (repo *billingRepository) QueryFeeItemsByOrganization(ctx context.Context, orgID int) ([]billing.FeeItem, error) {
	repo.db.billing.RLock()
	defer repo.db.billing.RUnlock()

	var fis []billing.FeeItem
	for _, fi := range repo.db.billing.table {
		if fi.OrganizationID == orgID {
			fis = append(fis, *fi)
		}
	}
	sortFeeItems(fis)
	return fis, nil
}

func (repo *billingRepository) GetFeeItemByID(ctx context.Context, id int) (billing.FeeItem, error) {
	repo.db.billing.RLock()
	defer repo.db.billing.RUnlock()

	if fi, ok := repo.db.billing.table[id]; ok {
		return *fi, nil
	}
	return billing.FeeItem{}, billing.ErrNotFound
}

func (repo *billingRepository) SetFeeItemStatus(ctx context.Context, id int, status string) (billing.FeeItem, error) {
	repo.db.billing.Lock()
	defer repo.db.billing.Unlock()

	fi, ok := repo.db.billing.table[id]
	if !ok {
		return billing.FeeItem{}, billing.ErrNotFound
	}
	fi.Status = status
	return *fi, nil
}
