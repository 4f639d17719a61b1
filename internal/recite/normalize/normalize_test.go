package normalize

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		// -- Tashkil and annotation marks --
		{"basmala first word", "بِسْمِ", "بسم"},
		{"shadda and kasra", "ٱللَّهِ", "الله"},
		{"dagger alef becomes alef", "ذَٰلِكَ", "ذالك"},
		{"small high signs", "ٱلْكِتَٰبُ لَا رَيْبَۛ", "الكتابلاريب"},
		{"end of ayah sign dropped", "فِيهِ ۝", "فيه"},

		// -- Letter variants --
		{"hamza above alef", "أَنْعَمْتَ", "انعمت"},
		{"hamza below alef", "إِيَّاكَ", "اياك"},
		{"madda alef", "ءَامَنُوا۟", "ءامنوا"},
		{"alef wasla", "ٱهْدِنَا", "اهدنا"},
		{"trailing teh marbuta", "رَحْمَةً", "رحمه"},
		{"alef maksura", "عَلَى", "علي"},

		// -- Whitespace and foreign characters --
		{"surrounding whitespace", "  الحمد  ", "الحمد"},
		{"internal whitespace removed", "الحمد لله", "الحمدلله"},
		{"latin dropped", "xyz", ""},
		{"mixed latin and arabic", "abc بسم", "بسم"},
		{"arabic punctuation dropped", "،؟", ""},
		{"tatweel only", "ــــ", ""},
		{"empty", "", ""},
		{"whitespace only", " \t\n", ""},
		{"arabic-indic digits kept", "١٢", "١٢"},

		// -- Presentation forms --
		{"allah ligature", "ﷲ", "الله"},

		// -- Muqatta'at --
		{"alif lam mim spoken", "الف لام ميم", "الم"},
		{"alif with hamza spoken", "ألف لام ميم", "الم"},
		{"alif lam mim written", "الٓمٓ", "الم"},
		{"kaf ha ya ain sad", "كاف ها يا عين صاد", "كهيعص"},
		{"letter name with hamza", "الف لام راء", "الر"},
		{"compact form split before hamza", "الفلامر ا ء", "الر"},
		{"sad alone", "صاد", "ص"},
		{"spoken without spaces", "الفلامميم", "الم"},
		{"extra spaces", "طا   سين  ميم", "طسم"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"بِسْمِ ٱللَّهِ ٱلرَّحْمَٰنِ ٱلرَّحِيمِ",
		"صَادٍ",
		"صا د",
		"الف لام ميم",
		"الفلامميم",
		"رَحْمَةً",
		"ة ا",
		"اةب",
		"ﷺ",
		"طاء ها",
		"الفلامر ا ء",
		"الفلامراء",
		"ءَامَنُوا۟",
		"مُوسَىٰ",
		"١٢٣ abc",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_ConcurrentUse(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := Normalize("ٱلرَّحِيمِ"); got != "الرحيم" {
					t.Errorf("Normalize = %q, want %q", got, "الرحيم")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"plain", "بسم الله الرحمن الرحيم", []string{"بسم", "الله", "الرحمن", "الرحيم"}},
		{"muqattaat merged", "الف لام ميم ذلك الكتاب", []string{"الم", "ذلك", "الكتاب"}},
		{"longest phrase wins", "الف لام ميم صاد كتاب", []string{"المص", "كتاب"}},
		{"single letter name", "نون والقلم", []string{"ن", "والقلم"}},
		{"noise dropped", "um بسم ، الله", []string{"بسم", "الله"}},
		{"vocative ya untouched", "يا ايها", []string{"يا", "ايها"}},
		{"empty", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Words(tt.text)
			if tt.want == nil {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}
