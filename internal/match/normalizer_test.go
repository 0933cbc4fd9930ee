package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain name unchanged",
			input: "山田太郎",
			want:  "山田太郎",
		},
		{
			name:  "strips giin suffix",
			input: "山田太郎議員",
			want:  "山田太郎",
		},
		{
			name:  "strips committee chair title",
			input: "佐藤花子委員長",
			want:  "佐藤花子",
		},
		{
			name:  "compound title stripped before component",
			input: "鈴木一郎副委員長",
			want:  "鈴木一郎",
		},
		{
			name:  "stacked honorifics stripped to fixpoint",
			input: "田中実議員さん",
			want:  "田中実",
		},
		{
			name:  "sensei suffix",
			input: "田中先生",
			want:  "田中",
		},
		{
			name:  "ideographic space collapsed",
			input: "山田　太郎",
			want:  "山田 太郎",
		},
		{
			name:  "full-width ascii folded",
			input: "Ｙａｍａｄａ Ｔａｒｏ",
			want:  "Yamada Taro",
		},
		{
			name:  "english trailing title",
			input: "Yamada Taro, Esq.",
			want:  "Yamada Taro",
		},
		{
			name:  "english member suffix",
			input: "Suzuki Ichiro Member",
			want:  "Suzuki Ichiro",
		},
		{
			name:  "bare title is not a name remainder",
			input: "委員",
			want:  "委員",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "  　  ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "Normalize must be idempotent")
		})
	}
}
