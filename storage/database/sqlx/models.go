package sqlxrepos

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

func getExec(dflt core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return dflt
}

func nullIntFromPtr(p *int) null.Int {
	if p == nil {
		return null.NewInt(0, false)
	}
	return null.IntFrom(*p)
}

func intPtr(n null.Int) *int {
	if !n.Valid {
		return nil
	}
	v := n.Int
	return &v
}
