package worker

import "errors"

// Ошибки worker-слоя.
var (
	// ErrJobNotClaimable — job уже забран другим worker-ом или находится
	// в терминальном статусе. Ожидаемая ситуация при конкурентном polling.
	ErrJobNotClaimable = errors.New("job is not claimable")

	// ErrJobDataMissing — job ссылается на несуществующий target, post
	// или account. Job переводится в failed без retry.
	ErrJobDataMissing = errors.New("job references missing data")
)
