package models

// Role - роль аутентифицированного пользователя.
type Role string

const (
	Seeker   Role = "seeker"   // Заказчик, публикующий заявки
	Provider Role = "provider" // Исполнитель, подающий предложения
)

// Valid проверяет, что роль известна.
func (r Role) Valid() bool {
	switch r {
	case Seeker, Provider:
		return true
	default:
		return false
	}
}

// Principal - аутентифицированный пользователь, от имени которого выполняется операция.
type Principal struct {
	ID             string `json:"id"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"organizationId,omitempty"`
}

// IsSeeker сообщает, выступает ли пользователь заказчиком.
func (p Principal) IsSeeker() bool { return p.Role == Seeker }

// IsProvider сообщает, выступает ли пользователь исполнителем.
func (p Principal) IsProvider() bool { return p.Role == Provider }
