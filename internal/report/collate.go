package report

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"pae-asistencia/internal/model"
)

// Collator 非并发安全，每次排序新建

func nameCollator() *collate.Collator {
	return collate.New(language.Spanish, collate.IgnoreCase)
}

func labelCollator() *collate.Collator {
	return collate.New(language.Spanish, collate.IgnoreCase, collate.Numeric)
}

// SortedByName 按西语姓名排序，返回副本
func SortedByName(students []model.Student) []model.Student {
	out := make([]model.Student, len(students))
	copy(out, students)
	c := nameCollator()
	sort.SliceStable(out, func(i, j int) bool {
		return c.CompareString(out[i].FullName, out[j].FullName) < 0
	})
	return out
}

// SortLabels 班级/校区标签排序（"601" < "1001"）
func SortLabels(labels []string) {
	c := labelCollator()
	sort.SliceStable(labels, func(i, j int) bool {
		return c.CompareString(labels[i], labels[j]) < 0
	})
}

// sortGroupKeys 先按校区再按班级
func sortGroupKeys(keys []GroupKey) {
	c := labelCollator()
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].Site != keys[j].Site {
			return c.CompareString(keys[i].Site, keys[j].Site) < 0
		}
		return c.CompareString(keys[i].Group, keys[j].Group) < 0
	})
}

// SortGroups 班级引用排序：先校区再班级
func SortGroups(refs []model.GroupRef) {
	c := labelCollator()
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Site != refs[j].Site {
			return c.CompareString(refs[i].Site, refs[j].Site) < 0
		}
		return c.CompareString(refs[i].Group, refs[j].Group) < 0
	})
}
