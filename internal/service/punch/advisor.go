package punch

import (
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
)

// NextType suggests the type of the next punch from the last punch of the
// day. The operator may still pick any type.
func NextType(last *punch.Punch) punch.Type {
	if last == nil {
		return punch.TypeEntrada
	}
	switch last.Type {
	case punch.TypeEntrada:
		return punch.TypeSaidaAlmoco
	case punch.TypeSaidaAlmoco:
		return punch.TypeVoltaAlmoco
	case punch.TypeVoltaAlmoco:
		return punch.TypeSaida
	default:
		return punch.TypeEntrada
	}
}
