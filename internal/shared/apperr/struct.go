package apperr

type Kind string

type AppError struct {
	Kind      Kind
	Code      string            // makine tarafından okunabilir hata kodu (opsiyonel)
	PublicMsg string            // kullanıcıya gösterilebilir mesaj
	Fields    map[string]string // form/validation alan hataları (opsiyonel)
	Err       error             // internal hata (log için)
}
