package console

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/cmsadmin/pkg/httpclient"
	"github.com/spf13/cobra"
)

// apiPrefix はゲートウェイの転送ルートのプレフィックス。
const apiPrefix = "/api"

// NewRootCommand は cmsctl のルートコマンドを生成する。
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "cmsctl",
		Short: "CMS管理APIのコンソール",
		Long: `cmsctl はゲートウェイ経由でCMS管理APIにログインし、
取得したセッションでAPIを呼び出すコンソールです。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		loginCmd(app),
		logoutCmd(app),
		statusCmd(app),
		apiCmd(app),
	)
	return root
}

func loginCmd(app *App) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "ログインしてセッションを保存する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("CMS_PASSWORD")
			}

			res := app.Session.Login(cmd.Context(), username, password)
			if !res.Success {
				return errors.New(res.Message)
			}

			st := app.Session.State()
			fmt.Fprintf(cmd.OutOrStdout(), "ログインしました: %s\n", st.User.DisplayName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "ユーザー名")
	cmd.Flags().StringVarP(&password, "password", "p", "", "パスワード（省略時は CMS_PASSWORD）")
	return cmd
}

func logoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "ログアウトしてセッションを破棄する",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			app.Session.Logout(cmd.Context())
		},
	}
}

func statusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "現在のセッションを表示する",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			st := app.Session.State()
			if !st.IsAuthenticated {
				fmt.Fprintln(out, "未ログイン")
				return
			}
			fmt.Fprintln(out, "ログイン中")
			fmt.Fprintf(out, "  ユーザー名: %s\n", st.User.Username)
			fmt.Fprintf(out, "  表示名:     %s\n", st.User.DisplayName)
			fmt.Fprintf(out, "  ロール:     %s\n", st.User.Role)
			fmt.Fprintf(out, "  状態:       %s\n", st.User.Status)
		},
	}
}

func apiCmd(app *App) *cobra.Command {
	var (
		data   string
		fields []string
	)

	cmd := &cobra.Command{
		Use:   "api <METHOD> <PATH>",
		Short: "ログイン中のセッションでAPIを呼び出す",
		Long: `PATH はゲートウェイの /api 以下のパスを指定します（例: /admin/profile）。
-d でJSONボディ、-F でマルチパートのフィールドを送信します。
-F file=@cover.png のように @ を付けるとファイルを添付します。`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			switch method {
			case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
			default:
				return fmt.Errorf("未対応のメソッドです: %s", args[0])
			}
			if data != "" && len(fields) > 0 {
				return errors.New("-d と -F は同時に指定できません")
			}

			ctx, err := app.Session.AuthorizedContext(cmd.Context())
			if err != nil {
				return err
			}

			body, contentType, err := buildBody(data, fields)
			if err != nil {
				return err
			}

			var result json.RawMessage
			err = app.Client.Do(ctx, method, apiPath(args[1]), body, contentType, &result)
			var statusErr *httpclient.StatusError
			if errors.As(err, &statusErr) {
				printJSON(cmd.OutOrStdout(), statusErr.Body)
				return fmt.Errorf("APIがエラーを返しました: status=%d", statusErr.StatusCode)
			}
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSONボディ")
	cmd.Flags().StringArrayVarP(&fields, "form", "F", nil, "マルチパートのフィールド（name=value または name=@file）")
	return cmd
}

// apiPath はゲートウェイの転送ルート上のパスを返す。
func apiPath(p string) string {
	p = "/" + strings.TrimLeft(p, "/")
	if p == apiPrefix || strings.HasPrefix(p, apiPrefix+"/") {
		return p
	}
	return apiPrefix + p
}

// buildBody はフラグからリクエストボディとContent-Typeを組み立てる。
func buildBody(data string, fields []string) (io.Reader, string, error) {
	if len(fields) > 0 {
		return buildMultipart(fields)
	}
	if data == "" {
		return nil, "", nil
	}
	if !json.Valid([]byte(data)) {
		return nil, "", errors.New("-d の値が正しいJSONではありません")
	}
	return strings.NewReader(data), "application/json", nil
}

// buildMultipart は name=value / name=@file 形式のフィールドからマルチパートを組み立てる。
func buildMultipart(fields []string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, "", fmt.Errorf("フィールドの形式が不正です: %q", f)
		}

		path, isFile := strings.CutPrefix(value, "@")
		if !isFile {
			if err := w.WriteField(name, value); err != nil {
				return nil, "", fmt.Errorf("フィールド %q の書き込みに失敗: %w", name, err)
			}
			continue
		}
		if err := writeFilePart(w, name, path); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("マルチパートの終端に失敗: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ファイル %q のオープンに失敗: %w", path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(name, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("ファイルパート %q の作成に失敗: %w", name, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("ファイル %q の読み込みに失敗: %w", path, err)
	}
	return nil
}

// printJSON はJSONを整形して出力する。整形できなければそのまま出力する。
func printJSON(out io.Writer, raw []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Fprintln(out, string(raw))
		return
	}
	fmt.Fprintln(out, buf.String())
}
