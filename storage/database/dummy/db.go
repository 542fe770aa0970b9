package dummydb

import (
	"sync"

	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/catalog"
	"github.com/trezcool/shule/core/organization"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
)

type (
	DB struct {
		organization *organizationTable
		catalog      *catalogTable
		staff        *staffTable
		student      *studentTable
		billing      *billingTable
	}

	organizationTable struct {
		sync.RWMutex
		table     map[int]*organization.Organization
		branches  map[int]*organization.Branch
		orgSeq    int
		branchSeq int
	}

	catalogTable struct {
		sync.RWMutex
		table   map[int]*catalog.Entity
		enabled map[int]map[int]bool // orgID -> set of entityIDs
		seq     int
	}

	staffTable struct {
		sync.RWMutex
		table    map[int]*staff.Staff
		subjects map[int]map[int]bool // staffID -> set of subjectIDs
		seq      int
	}

	studentTable struct {
		sync.RWMutex
		table map[int]*student.Student
		seq   int
	}

	billingTable struct {
		sync.RWMutex
		table map[int]*billing.FeeItem
		seq   int
	}
)

func Open() (*DB, error) {
	db := &DB{
		organization: &organizationTable{
			table:    make(map[int]*organization.Organization),
			branches: make(map[int]*organization.Branch),
		},
		catalog: &catalogTable{
			table:   make(map[int]*catalog.Entity),
			enabled: make(map[int]map[int]bool),
		},
		staff: &staffTable{
			table:    make(map[int]*staff.Staff),
			subjects: make(map[int]map[int]bool),
		},
		student: &studentTable{table: make(map[int]*student.Student)},
		billing: &billingTable{table: make(map[int]*billing.FeeItem)},
	}
	return db, nil
}
