package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"elearning/backend/pkg/response"
)

// digitFolder 将波斯数字 ۰-۹ 与阿拉伯数字 ٠-٩ 转为 ASCII 0-9
var digitFolder = runes.Map(func(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	}
	return r
})

// FoldDigits 返回转换后的字符串
func FoldDigits(s string) string {
	out, _, err := transform.String(digitFolder, s)
	if err != nil {
		return s
	}
	return out
}

// multipartMemory 与 gin 默认的 MaxMultipartMemory 一致
const multipartMemory = 32 << 20

// NormalizeDigits 在绑定前规范化查询参数、JSON / urlencoded 请求体与 multipart 表单字段中的数字。
// multipart 附件内容保持原样
func NormalizeDigits() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.RawQuery != "" {
			c.Request.URL.RawQuery = foldValues(c.Request.URL.Query()).Encode()
		}

		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}

		ct := c.ContentType()
		if ct == gin.MIMEMultipartPOSTForm {
			if err := foldMultipartForm(c.Request); err != nil {
				if IsBodyTooLarge(err) {
					response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				} else {
					response.BadRequest(c, 10001, "无法解析表单")
				}
				c.Abort()
				return
			}
			c.Next()
			return
		}
		if ct != gin.MIMEJSON && ct != gin.MIMEPOSTForm {
			c.Next()
			return
		}

		raw, err := io.ReadAll(c.Request.Body)
		_ = c.Request.Body.Close()
		if err != nil {
			if IsBodyTooLarge(err) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			} else {
				response.BadRequest(c, 10001, "无法读取请求体")
			}
			c.Abort()
			return
		}

		if ct == gin.MIMEPOSTForm {
			if values, err := url.ParseQuery(string(raw)); err == nil {
				raw = []byte(foldValues(values).Encode())
			}
		} else {
			raw = transformBytes(raw)
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		c.Request.ContentLength = int64(len(raw))
		c.Next()
	}
}

// foldMultipartForm 解析表单后只转换文本字段，文件部分不动
func foldMultipartForm(req *http.Request) error {
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		return err
	}
	req.MultipartForm.Value = foldValues(req.MultipartForm.Value)
	req.PostForm = foldValues(req.PostForm)
	req.Form = foldValues(req.Form)
	return nil
}

func foldValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, vs := range values {
		folded := make([]string, len(vs))
		for i, v := range vs {
			folded[i] = FoldDigits(v)
		}
		out[FoldDigits(k)] = folded
	}
	return out
}

func transformBytes(b []byte) []byte {
	// 纯 ASCII 时直接返回
	if !bytes.ContainsFunc(b, func(r rune) bool { return r > 0x7f }) {
		return b
	}
	out, _, err := transform.Bytes(digitFolder, b)
	if err != nil {
		return b
	}
	return out
}
