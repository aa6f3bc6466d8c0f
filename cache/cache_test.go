// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache_test

import (
	"testing"
	"time"

	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
	"github.com/jacobsa/timeutil"

	"github.com/fspbridge/kfusebridge/cache"
	"github.com/fspbridge/kfusebridge/model"
)

func TestCache(t *testing.T) { RunTests(t) }

type CacheTest struct {
	clock *fakeClock
	c     *cache.Cache
}

func init() { RegisterTestSuite(&CacheTest{}) }

func (t *CacheTest) SetUp(*TestInfo) {
	t.clock = &fakeClock{now: time.Unix(1000, 0)}
	t.c = cache.Create(cache.Config{TTL: time.Minute, Clock: t.clock})
}

func (t *CacheTest) LookupMissOnEmptyCache() {
	_, ok := t.c.Lookup(model.RootInodeID, "foo")
	ExpectFalse(ok)
}

func (t *CacheTest) InsertThenLookupHits() {
	t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{Size: 4096})

	it, ok := t.c.Lookup(model.RootInodeID, "foo")
	AssertTrue(ok)
	ExpectEq(model.InodeID(17), it.Child)
	ExpectEq(uint64(4096), it.Attributes.Size)
}

func (t *CacheTest) InsertTwiceSameChildDoesNotBumpGeneration() {
	t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{})
	it := t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{})
	ExpectEq(model.Generation(0), it.Generation)
}

func (t *CacheTest) InsertWithDifferentChildBumpsGeneration() {
	t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{})
	it := t.c.Insert(model.RootInodeID, "foo", 18, model.Attributes{})
	ExpectEq(model.Generation(1), it.Generation)
	ExpectEq(model.InodeID(18), it.Child)
}

func (t *CacheTest) CaseInsensitiveVolumeFoldsNames() {
	t.c = cache.Create(cache.Config{CaseInsensitive: true, TTL: time.Minute, Clock: t.clock})
	t.c.Insert(model.RootInodeID, "Foo.txt", 5, model.Attributes{})

	it, ok := t.c.Lookup(model.RootInodeID, "FOO.TXT")
	AssertTrue(ok)
	ExpectEq(model.InodeID(5), it.Child)
}

func (t *CacheTest) CaseSensitiveVolumeDoesNotFold() {
	t.c.Insert(model.RootInodeID, "Foo.txt", 5, model.Attributes{})
	_, ok := t.c.Lookup(model.RootInodeID, "FOO.TXT")
	ExpectFalse(ok)
}

func (t *CacheTest) ExpirationSweepLeavesUnexpiredItemsAlone() {
	t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{})

	n := t.c.ExpirationSweep(t.clock.now)
	ExpectEq(0, n)

	_, ok := t.c.Lookup(model.RootInodeID, "foo")
	ExpectTrue(ok)
}

func (t *CacheTest) ExpirationSweepQueuesExpiredUnreferencedItems() {
	t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{})
	t.clock.now = t.clock.now.Add(2 * time.Minute)

	n := t.c.ExpirationSweep(t.clock.now)
	ExpectEq(1, n)

	_, ok := t.c.Lookup(model.RootInodeID, "foo")
	ExpectFalse(ok, "expired item must no longer service Lookup")

	ExpectTrue(t.c.HasPendingForgets())
}

func (t *CacheTest) ExpirationSweepSkipsReferencedItems() {
	it := t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{})
	t.c.Reference(it)
	t.clock.now = t.clock.now.Add(2 * time.Minute)

	n := t.c.ExpirationSweep(t.clock.now)
	ExpectEq(0, n)

	_, ok := t.c.Lookup(model.RootInodeID, "foo")
	ExpectTrue(ok)
}

func (t *CacheTest) ReleaseAllowsSubsequentSweepToQueueTheItem() {
	it := t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{})
	t.c.Reference(it)
	t.c.Release(it)
	t.clock.now = t.clock.now.Add(2 * time.Minute)

	n := t.c.ExpirationSweep(t.clock.now)
	ExpectEq(1, n)
}

func (t *CacheTest) TakeForgetListDetachesAndResets() {
	t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{})
	t.c.Insert(model.RootInodeID, "bar", 18, model.Attributes{})
	t.clock.now = t.clock.now.Add(2 * time.Minute)
	t.c.ExpirationSweep(t.clock.now)

	head, count := t.c.TakeForgetList()
	ExpectEq(2, count)
	ExpectFalse(t.c.HasPendingForgets())

	var inodes []model.InodeID
	for head != nil {
		var inode model.InodeID
		var ok bool
		inode, head, ok = cache.ForgetNextItem(head)
		AssertTrue(ok)
		inodes = append(inodes, inode)
	}
	ExpectThat(inodes, Contains(model.InodeID(17)))
	ExpectThat(inodes, Contains(model.InodeID(18)))
}

func (t *CacheTest) ForgetNextItemOnEmptyListIsBenign() {
	_, rest, ok := cache.ForgetNextItem(nil)
	ExpectFalse(ok)
	ExpectTrue(rest == nil)
}

func (t *CacheTest) DeleteItemsDiscardsChainWithoutPanicking() {
	t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{})
	t.clock.now = t.clock.now.Add(2 * time.Minute)
	t.c.ExpirationSweep(t.clock.now)

	head, _ := t.c.TakeForgetList()
	cache.DeleteItems(head)
}

func (t *CacheTest) StatsReflectHitsMissesAndEvictions() {
	t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{})
	t.c.Lookup(model.RootInodeID, "foo")
	t.c.Lookup(model.RootInodeID, "missing")

	t.clock.now = t.clock.now.Add(2 * time.Minute)
	t.c.ExpirationSweep(t.clock.now)

	s := t.c.Stats()
	ExpectEq(uint64(1), s.Hits)
	ExpectEq(uint64(1), s.Misses)
	ExpectEq(uint64(1), s.Evictions)
	ExpectEq(1, s.ForgetDepth)
}

func (t *CacheTest) DeleteClearsEverything() {
	t.c.Insert(model.RootInodeID, "foo", 17, model.Attributes{})
	t.c.Delete()

	_, ok := t.c.Lookup(model.RootInodeID, "foo")
	ExpectFalse(ok)
}

type fakeClock struct {
	now time.Time
}

var _ timeutil.Clock = &fakeClock{}

func (c *fakeClock) Now() time.Time { return c.now }
