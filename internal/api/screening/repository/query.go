package screeningRepository

const (
	queryCreatePrediction = `
		INSERT INTO predictions (
			id,
			user_id,
			label,
			top_condition,
			top_probability,
			proba,
			features,
			reasons,
			source,
			created_at
		) VALUES (
			:id,
			:user_id,
			:label,
			:top_condition,
			:top_probability,
			:proba,
			:features,
			:reasons,
			:source,
			:created_at
		)
	`

	queryGetPredictionByID = `
		SELECT
			id,
			user_id,
			label,
			top_condition,
			top_probability,
			proba,
			features,
			reasons,
			source,
			created_at
		FROM predictions
		WHERE id = :id AND user_id = :user_id
	`

	queryListPredictionsByUser = `
		SELECT
			id,
			user_id,
			label,
			top_condition,
			top_probability,
			proba,
			features,
			reasons,
			source,
			created_at
		FROM predictions
		WHERE user_id = :user_id
		ORDER BY created_at DESC
		LIMIT :limit OFFSET :offset
	`

	queryCountPredictionsByUser = `
		SELECT COUNT(*)
		FROM predictions
		WHERE user_id = :user_id
	`
)
