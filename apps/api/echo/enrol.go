package echoapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/enrol"
	"github.com/trezcool/campus/core/user"
)

// ImportRequest keeps the rows raw: an element that is not an object fails its row, not the request.
type ImportRequest struct {
	Rows *[]json.RawMessage `json:"rows"`
}

type enrolApi struct {
	importer Importer
}

func registerEnrolAPI(g *echo.Group, jwt echo.MiddlewareFunc, importer Importer) {
	api := enrolApi{importer: importer}

	sg := g.Group("/students", jwt, roleMiddleware(user.RoleAdmin))
	sg.POST("/import", api.importStudents, middleware.BodyLimit(maxUploadSize))
}

// importStudents accepts {"rows": [...]} or a multipart .xlsx/.csv upload in the "file" field.
// Row failures are reported in the result; only a malformed request is an error.
func (api *enrolApi) importStudents(ctx echo.Context) error {
	var (
		rows []enrol.ImportRow
		err  error
	)
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		rows, err = api.bindFile(ctx)
	} else {
		rows, err = api.bindRows(ctx)
	}
	if err != nil {
		return err
	}

	res := api.importer.Import(ctx.Request().Context(), rows)
	return ctx.JSON(http.StatusOK, res)
}

func (api *enrolApi) bindRows(ctx echo.Context) ([]enrol.ImportRow, error) {
	var data ImportRequest
	if err := ctx.Bind(&data); err != nil {
		return nil, errors.Wrap(err, "binding to ImportRequest")
	}
	if data.Rows == nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "rows", Error: "a list of rows is required"})
	}
	rows := make([]enrol.ImportRow, len(*data.Rows))
	for i, raw := range *data.Rows {
		rows[i] = enrol.DecodeRow(raw)
	}
	return rows, nil
}

func (api *enrolApi) bindFile(ctx echo.Context) ([]enrol.ImportRow, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "file", Error: "this field is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening upload")
	}
	defer func() { _ = f.Close() }()

	rows, err := enrol.DecodeSheet(f, fh.Filename)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
	}
	return rows, nil
}
