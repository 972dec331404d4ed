package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type Store struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"    json:"id"`
	Name  string `gorm:"unique;not null"             json:"name"`
	Items []Item `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Tags  []Tag  `gorm:"constraint:OnDelete:CASCADE" json:"tags,omitempty"`
}

type Item struct {
	ID      uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string  `gorm:"not null"                 json:"name"`
	Price   float64 `gorm:"not null"                 json:"price"`
	StoreID uint    `gorm:"index;not null"           json:"store_id"`
	Tags    []Tag   `gorm:"many2many:item_tags"      json:"tags,omitempty"`
}

type Tag struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string `gorm:"not null"                 json:"name"`
	StoreID uint   `gorm:"index;not null"           json:"store_id"`
	Items   []Item `gorm:"many2many:item_tags"      json:"items,omitempty"`
}

// RevokedToken rows are inserted on logout and only ever read afterwards.
// ExpiresAt records when the token itself dies so stale rows can be pruned
// offline.
type RevokedToken struct {
	ID        uint   `gorm:"primaryKey"           json:"id"`
	JTI       string `gorm:"uniqueIndex;not null" json:"jti"`
	ExpiresAt int64  `gorm:"not null"             json:"expires_at"`
}
