package models

// UserProfile is the client-side profile shape.
type UserProfile struct {
	ID       int64            `json:"id"`
	Email    string           `json:"email"`
	Name     string           `json:"name"`
	Age      int              `json:"age"`
	Status   ModerationStatus `json:"status"`
	Height   int              `json:"height"`
	BodyType BodyType         `json:"bodyType"`
	Gender   Gender           `json:"gender"`
	City     string           `json:"city"`
	CityID   int64            `json:"cityId"`
	Avatar   string           `json:"avatar"`
	Photos   []string         `json:"photos"`
	Bio      string           `json:"bio,omitempty"`
	Desires  string           `json:"desires,omitempty"`
}

// ProfileWire is the backend (snake_case) profile shape.
type ProfileWire struct {
	ID       int64            `json:"id"`
	Email    string           `json:"email"`
	Name     string           `json:"name"`
	Age      int              `json:"age"`
	Status   ModerationStatus `json:"status"`
	Height   int              `json:"height"`
	BodyType BodyType         `json:"body_type"`
	Gender   Gender           `json:"gender"`
	City     string           `json:"city"`
	CityID   int64            `json:"city_id"`
	Avatar   string           `json:"avatar"`
	Photos   []string         `json:"photos"`
	Bio      *string          `json:"bio"`
	Desires  *string          `json:"desires"`
}

func AdaptProfile(w ProfileWire) UserProfile {
	p := UserProfile{
		ID:       w.ID,
		Email:    w.Email,
		Name:     w.Name,
		Age:      w.Age,
		Status:   w.Status,
		Height:   w.Height,
		BodyType: w.BodyType,
		Gender:   w.Gender,
		City:     w.City,
		CityID:   w.CityID,
		Avatar:   w.Avatar,
		Photos:   w.Photos,
	}
	if p.Photos == nil {
		p.Photos = []string{}
	}
	if w.Bio != nil {
		p.Bio = *w.Bio
	}
	if w.Desires != nil {
		p.Desires = *w.Desires
	}
	return p
}

// ProfileEdit holds the editable profile fields.
type ProfileEdit struct {
	Name     string   `json:"name" validate:"required"`
	Height   int      `json:"height" validate:"required,gt=0"`
	BodyType BodyType `json:"bodyType" validate:"required,bodytype"`
	CityID   int64    `json:"cityId" validate:"required,gt=0"`
	Bio      string   `json:"bio,omitempty"`
	Desires  string   `json:"desires,omitempty"`
}

type ProfileEditWire struct {
	Name     string   `json:"name"`
	Height   int      `json:"height"`
	BodyType BodyType `json:"body_type"`
	CityID   int64    `json:"city_id"`
	Bio      *string  `json:"bio"`
	Desires  *string  `json:"desires"`
}

func (e ProfileEdit) Wire() ProfileEditWire {
	w := ProfileEditWire{
		Name:     e.Name,
		Height:   e.Height,
		BodyType: e.BodyType,
		CityID:   e.CityID,
	}
	if e.Bio != "" {
		bio := e.Bio
		w.Bio = &bio
	}
	if e.Desires != "" {
		desires := e.Desires
		w.Desires = &desires
	}
	return w
}

// EditFromProfile seeds an edit form from the current profile.
func EditFromProfile(p UserProfile) ProfileEdit {
	return ProfileEdit{
		Name:     p.Name,
		Height:   p.Height,
		BodyType: p.BodyType,
		CityID:   p.CityID,
		Bio:      p.Bio,
		Desires:  p.Desires,
	}
}

type PhotoUploadResult struct {
	Success bool     `json:"success"`
	Photos  []string `json:"photos"`
}
