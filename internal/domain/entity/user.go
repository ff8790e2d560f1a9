package entity

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu         UserState = "main_menu"         // В главном меню
	StateAwaitingLocation UserState = "awaiting_location" // Ожидание геопозиции
	StateAwaitingPhoto    UserState = "awaiting_photo"    // Ожидание фото дороги
	StateProcessing       UserState = "processing"        // Обработка изображения
)

// User представляет пользователя бота
type User struct {
	ID         int64     // Telegram User ID
	ChatID     int64     // Telegram Chat ID
	State      UserState // Текущее состояние пользователя
	Location   *Location // Последняя отправленная геопозиция
	Subscribed bool      // Получает уведомления о новых ямах
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// SetLocation запоминает геопозицию для следующего фото
func (u *User) SetLocation(loc Location) {
	u.Location = &loc
}

// TakeLocation возвращает геопозицию и сбрасывает её, чтобы не приписать её следующему фото
func (u *User) TakeLocation() *Location {
	loc := u.Location
	u.Location = nil
	return loc
}
