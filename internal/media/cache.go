/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package media

import (
	"container/list"
	"image"
	"sync"
)

// DefaultCacheBudgetMiB bounds the frame cache memory across resolutions.
const DefaultCacheBudgetMiB = 256

// FrameCache is an LRU cache of decoded frames. Capacity is derived from the
// frame dimensions so the footprint stays within the budget regardless of
// video resolution, with a floor of 8 frames for scrubbing and a hard cap of
// 128 to prevent extreme caching on tiny resolutions.
type FrameCache struct {
	mu    sync.Mutex
	max   int
	order *list.List // front = most recently used; values are cacheEntry
	byIdx map[int]*list.Element
}

type cacheEntry struct {
	idx   int
	frame *image.RGBA
}

// NewFrameCache sizes a cache for frames of the given dimensions. budgetMiB
// <= 0 selects the default budget.
func NewFrameCache(frameW, frameH, budgetMiB int) *FrameCache {
	if budgetMiB <= 0 {
		budgetMiB = DefaultCacheBudgetMiB
	}
	bytesPerFrame := frameW * frameH * 4
	if bytesPerFrame < 1 {
		bytesPerFrame = 1
	}
	capacity := budgetMiB * 1024 * 1024 / bytesPerFrame
	if capacity > 128 {
		capacity = 128
	}
	if capacity < 8 {
		capacity = 8
	}
	return &FrameCache{
		max:   capacity,
		order: list.New(),
		byIdx: make(map[int]*list.Element),
	}
}

// Capacity returns the maximum number of cached frames.
func (c *FrameCache) Capacity() int { return c.max }

// Get returns the cached frame and marks it recently used.
func (c *FrameCache) Get(idx int) (*image.RGBA, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.byIdx[idx]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(cacheEntry).frame, true
}

// Put stores a frame, evicting the least recently used when full.
func (c *FrameCache) Put(idx int, frame *image.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byIdx[idx]; ok {
		c.order.MoveToFront(el)
		return
	}
	c.byIdx[idx] = c.order.PushFront(cacheEntry{idx: idx, frame: frame})
	if c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.byIdx, oldest.Value.(cacheEntry).idx)
	}
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every cached frame.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.byIdx = make(map[int]*list.Element)
}
