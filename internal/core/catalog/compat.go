package catalog

import (
	"recipe-importer/internal/pkg/common"
)

// AdmissibleUnits 依食材形態過濾可用單位
// solid → weight、quantity；liquid → volume；unknown → 全部
// 單位目錄為空時回傳空集合，由呼叫端呈現載入中狀態
func AdmissibleUnits(form common.IngredientForm, allUnits []common.Unit) []common.Unit {
	if len(allUnits) == 0 {
		return nil
	}

	allowed := admissibleTypes(form)
	if allowed == nil {
		out := make([]common.Unit, len(allUnits))
		copy(out, allUnits)
		return out
	}

	var out []common.Unit
	for _, unit := range allUnits {
		if _, ok := allowed[unit.Type]; ok {
			out = append(out, unit)
		}
	}
	return out
}

// admissibleTypes 形態對應的單位類型，nil 表示不限制
func admissibleTypes(form common.IngredientForm) map[common.UnitType]struct{} {
	switch form {
	case common.FormSolid:
		return map[common.UnitType]struct{}{
			common.UnitWeight:   {},
			common.UnitQuantity: {},
		}
	case common.FormLiquid:
		return map[common.UnitType]struct{}{
			common.UnitVolume: {},
		}
	default:
		return nil
	}
}
