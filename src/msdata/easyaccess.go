package msdata

import (
	"context"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/auth"
	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
)

const EasyAccessTokenLength = 20
const EasyAccessDefaultLifetime = 365 * 24 * time.Hour

/*
CreateEasyAccess mints a new token for a course. A zero expiration date
gets the default lifetime of one year from now.
*/
func CreateEasyAccess(
	ctx context.Context,
	dbConn db.ConnOrTx,
	courseID int,
	level models.AccessLevel,
	name, email string,
	expirationDate time.Time,
) (*models.EasyAccess, error) {
	if expirationDate.IsZero() {
		expirationDate = time.Now().Add(EasyAccessDefaultLifetime)
	}

	token, err := auth.MakeToken(EasyAccessTokenLength)
	if err != nil {
		return nil, err
	}

	ea, err := db.QueryOne[models.EasyAccess](ctx, dbConn,
		`
		INSERT INTO easy_access (course_id, token, access_level, expiration_date, name, email, date_created)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING $columns
		`,
		courseID, token, level, expirationDate, name, email,
	)
	if err != nil {
		return nil, oops.New(err, "failed to create easy access token")
	}
	return ea, nil
}

/*
ActivateEasyAccess looks a token up by its opaque value and, when it is
valid on the given day, records it in the session. Expired and unknown
tokens both come back as db.NotFound; callers cannot distinguish them.
*/
func ActivateEasyAccess(
	ctx context.Context,
	dbConn db.ConnOrTx,
	session *AccessSession,
	token string,
	now time.Time,
) (*models.EasyAccess, error) {
	ea, err := db.QueryOne[models.EasyAccess](ctx, dbConn,
		`SELECT $columns FROM easy_access WHERE token = $1`,
		token,
	)
	if err != nil {
		return nil, err
	}
	if !ea.ValidOn(now) {
		return nil, db.NotFound
	}

	session.Activate(ea)
	return ea, nil
}

// ClearExpiredEasyAccesses deletes tokens whose expiration day has fully
// passed. Run by the periodic cleanup job.
func ClearExpiredEasyAccesses(ctx context.Context, dbConn db.ConnOrTx) (int, error) {
	tag, err := dbConn.Exec(ctx,
		`DELETE FROM easy_access WHERE expiration_date < CURRENT_DATE`,
	)
	if err != nil {
		return 0, oops.New(err, "failed to clear expired easy access tokens")
	}
	return int(tag.RowsAffected()), nil
}
