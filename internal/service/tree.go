package service

import (
	"sort"

	"org-directory-go/internal/model"
)

// BuildForest 把扁平的活动行组装成以 parentID 的直接子节点为根的森林；
// parentID 为 nil 时以所有根节点为根。与 parentID 相同的行会被忽略。
// 每个节点只挂在它自己的父节点下，因此一个节点在结果中至多出现一次。
func BuildForest(rows []model.Activity, parentID *uint) []*model.ActivityNode {
	nodes := make(map[uint]*model.ActivityNode, len(rows))
	for _, row := range rows {
		if parentID != nil && row.ID == *parentID {
			continue
		}
		nodes[row.ID] = &model.ActivityNode{
			ID:       row.ID,
			Name:     row.Name,
			ParentID: row.ParentID,
			Children: []*model.ActivityNode{},
		}
	}

	forest := []*model.ActivityNode{}
	for _, node := range nodes {
		switch {
		case isTopLevel(node.ParentID, parentID):
			forest = append(forest, node)
		case node.ParentID != nil:
			if parent, ok := nodes[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
			}
		}
	}

	// map 遍历顺序随机，统一按 ID 排序输出
	sortNodes(forest)
	return forest
}

func isTopLevel(nodeParent, parentID *uint) bool {
	if parentID == nil {
		return nodeParent == nil
	}
	return nodeParent != nil && *nodeParent == *parentID
}

func sortNodes(nodes []*model.ActivityNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// CountNodes 返回森林中的节点总数。
func CountNodes(forest []*model.ActivityNode) int {
	n := 0
	for _, node := range forest {
		n += 1 + CountNodes(node.Children)
	}
	return n
}
